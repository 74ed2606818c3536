package models

import (
	"bytes"
	"encoding/json"
)

// DefaultUserID is used when a request carries no user id.
const DefaultUserID = "default"

// Request is one transport-neutral conversational turn.
type Request struct {
	Utterance string
	UserID    string
	ImageURL  string
}

// Reply is the engine's answer to a turn.
type Reply struct {
	Text            string   `json:"text"`
	SuggestedInputs []string `json:"suggested_inputs"`
}

// SkillRequest is the inbound chatbot skill payload.
type SkillRequest struct {
	UserRequest SkillUserRequest `json:"userRequest"`
	Action      SkillAction      `json:"action"`
}

// SkillUserRequest carries what the user typed or sent.
type SkillUserRequest struct {
	Utterance string         `json:"utterance"`
	User      SkillUser      `json:"user"`
	Params    map[string]any `json:"params"`
}

// SkillUser identifies the chatting user.
type SkillUser struct {
	ID string `json:"id"`
}

// SkillAction carries parameters extracted by the bot builder.
type SkillAction struct {
	Params map[string]any `json:"params"`
}

// ToRequest maps the payload onto a Request, substituting defaults for missing fields.
func (r *SkillRequest) ToRequest() Request {
	req := Request{
		Utterance: r.UserRequest.Utterance,
		UserID:    r.UserRequest.User.ID,
		ImageURL:  r.imageURL(),
	}
	if req.UserID == "" {
		req.UserID = DefaultUserID
	}
	return req
}

// DecodeSkillRequest reads a skill payload loosely: fields that are missing or
// of the wrong type take their defaults. An error is returned only when body
// is not a JSON object, and the Request is still the defaulted one.
func DecodeSkillRequest(body []byte) (Request, error) {
	var raw map[string]any
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return Request{UserID: DefaultUserID}, err
		}
	}

	userReq := object(raw["userRequest"])
	action := object(raw["action"])
	req := SkillRequest{
		UserRequest: SkillUserRequest{
			Utterance: str(userReq["utterance"]),
			User:      SkillUser{ID: str(object(userReq["user"])["id"])},
			Params:    object(userReq["params"]),
		},
		Action: SkillAction{Params: object(action["params"])},
	}
	return req.ToRequest(), nil
}

func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func (r *SkillRequest) imageURL() string {
	for _, params := range []map[string]any{r.Action.Params, r.UserRequest.Params} {
		for _, key := range []string{"image", "imageUrl", "secureimage"} {
			if s, ok := params[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// SkillResponse is the outbound chatbot skill payload.
type SkillResponse struct {
	Version  string        `json:"version"`
	Template SkillTemplate `json:"template"`
}

// SkillTemplate holds the rendered outputs and quick replies.
type SkillTemplate struct {
	Outputs      []SkillOutput `json:"outputs"`
	QuickReplies []QuickReply  `json:"quickReplies,omitempty"`
}

// SkillOutput is a single output block.
type SkillOutput struct {
	SimpleText SimpleText `json:"simpleText"`
}

// SimpleText is a plain text bubble.
type SimpleText struct {
	Text string `json:"text"`
}

// QuickReply is a button that sends its label back as the next utterance.
type QuickReply struct {
	Label       string `json:"label"`
	Action      string `json:"action"`
	MessageText string `json:"messageText"`
}

// NewSkillResponse renders a Reply in the skill wire format.
func NewSkillResponse(reply Reply) SkillResponse {
	resp := SkillResponse{
		Version: "2.0",
		Template: SkillTemplate{
			Outputs: []SkillOutput{{SimpleText: SimpleText{Text: reply.Text}}},
		},
	}
	for _, in := range reply.SuggestedInputs {
		resp.Template.QuickReplies = append(resp.Template.QuickReplies, QuickReply{
			Label:       in,
			Action:      "message",
			MessageText: in,
		})
	}
	return resp
}
