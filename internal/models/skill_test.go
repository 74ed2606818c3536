package models

import (
	"encoding/json"
	"testing"
)

func TestDecodeSkillRequest(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected Request
	}{
		{
			name:     "utterance and user",
			payload:  `{"userRequest":{"utterance":"소시지","user":{"id":"abc"}}}`,
			expected: Request{Utterance: "소시지", UserID: "abc"},
		},
		{
			name:     "missing fields default",
			payload:  `{}`,
			expected: Request{UserID: DefaultUserID},
		},
		{
			name:     "image from action params",
			payload:  `{"userRequest":{"user":{"id":"u"}},"action":{"params":{"image":"https://a/1.jpg"}}}`,
			expected: Request{UserID: "u", ImageURL: "https://a/1.jpg"},
		},
		{
			name:     "image from user params",
			payload:  `{"userRequest":{"user":{"id":"u"},"params":{"imageUrl":"https://a/2.jpg"}}}`,
			expected: Request{UserID: "u", ImageURL: "https://a/2.jpg"},
		},
		{
			name:     "secure image param",
			payload:  `{"action":{"params":{"secureimage":"https://a/3.jpg"}}}`,
			expected: Request{UserID: DefaultUserID, ImageURL: "https://a/3.jpg"},
		},
		{
			name:     "action params win",
			payload:  `{"userRequest":{"params":{"image":"https://user"}},"action":{"params":{"image":"https://action"}}}`,
			expected: Request{UserID: DefaultUserID, ImageURL: "https://action"},
		},
		{
			name:     "non-string param ignored",
			payload:  `{"action":{"params":{"image":42}}}`,
			expected: Request{UserID: DefaultUserID},
		},
		{
			name:     "non-string utterance defaults",
			payload:  `{"userRequest":{"utterance":123,"user":{"id":"abc"}}}`,
			expected: Request{UserID: "abc"},
		},
		{
			name:     "non-string user id defaults",
			payload:  `{"userRequest":{"utterance":"소시지","user":{"id":7}}}`,
			expected: Request{Utterance: "소시지", UserID: DefaultUserID},
		},
		{
			name:     "user request of wrong shape",
			payload:  `{"userRequest":"소시지","action":[1,2]}`,
			expected: Request{UserID: DefaultUserID},
		},
		{
			name:     "empty body",
			payload:  ``,
			expected: Request{UserID: DefaultUserID},
		},
		{
			name:     "null body",
			payload:  `null`,
			expected: Request{UserID: DefaultUserID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSkillRequest([]byte(tt.payload))
			if err != nil {
				t.Fatalf("DecodeSkillRequest: %v", err)
			}
			if got != tt.expected {
				t.Errorf("DecodeSkillRequest() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestDecodeSkillRequest_NotAnObject(t *testing.T) {
	for _, payload := range []string{`{not json`, `[1,2]`, `"소시지"`} {
		t.Run(payload, func(t *testing.T) {
			got, err := DecodeSkillRequest([]byte(payload))
			if err == nil {
				t.Fatal("expected an error")
			}
			if want := (Request{UserID: DefaultUserID}); got != want {
				t.Errorf("DecodeSkillRequest() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestSkillRequest_ToRequestTyped(t *testing.T) {
	req := SkillRequest{
		UserRequest: SkillUserRequest{User: SkillUser{ID: "u1"}, Params: map[string]any{"secureimage": "https://img.example.com/b.jpg"}},
	}
	want := Request{UserID: "u1", ImageURL: "https://img.example.com/b.jpg"}
	if got := req.ToRequest(); got != want {
		t.Errorf("ToRequest() = %+v, want %+v", got, want)
	}
}

func TestNewSkillResponse(t *testing.T) {
	resp := NewSkillResponse(Reply{Text: "안내", SuggestedInputs: []string{"처음으로"}})

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"version":"2.0","template":{"outputs":[{"simpleText":{"text":"안내"}}],` +
		`"quickReplies":[{"label":"처음으로","action":"message","messageText":"처음으로"}]}}`
	if string(data) != want {
		t.Errorf("json = %s\nwant %s", data, want)
	}
}

func TestNewSkillResponse_NoQuickReplies(t *testing.T) {
	data, err := json.Marshal(NewSkillResponse(Reply{Text: "x"}))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"version":"2.0","template":{"outputs":[{"simpleText":{"text":"x"}}]}}`
	if string(data) != want {
		t.Errorf("json = %s\nwant %s", data, want)
	}
}
