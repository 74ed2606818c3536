package crawler

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const itemPage = `<html><body>
<table>
  <tr><th>번호</th><th>식품유형</th><th>검사항목</th></tr>
  <tr><td>1</td><td>과자</td><td>산가, 세균수</td></tr>
  <tr><td>2</td><td> 캔디류 </td><td>타르색소<br>납</td></tr>
  <tr><td>3</td><td>빈칸</td></tr>
  <tr><td>4</td><td></td><td>누락</td></tr>
</table>
<div id="question_229">
<table>
  <tr><td>번호</td><td>식품유형</td><td>검사항목</td></tr>
  <tr><td>1</td><td>소시지</td><td>아질산이온</td></tr>
</table>
</div>
</body></html>`

const cyclePage = `<html><body>
<div class="needpopup answerPop" id="question_236">
<table>
  <tr><td>구분</td><td>식품군</td><td>식품유형</td><td>주기</td></tr>
  <tr><td>1</td><td>과자류</td><td>과자, 캔디류,</td><td>6개월 1회</td></tr>
  <tr><td>2</td><td>음료류</td><td>과채주스</td><td>1년 1회</td></tr>
  <tr><td>3</td><td>짧은행</td><td>셀</td></tr>
  <tr><td>4</td><td>주기없음</td><td>두부</td><td></td></tr>
</table>
<table>
  <tr><td>x</td><td>무시</td><td>무시</td><td>무시</td></tr>
  <tr><td>x</td><td>무시</td><td>무시</td><td>무시</td></tr>
</table>
</div>
<div id="question_239"><p>준비 중</p></div>
</body></html>`

func TestParseItems_AllTables(t *testing.T) {
	rows, err := ParseItems(strings.NewReader(itemPage), "")
	if err != nil {
		t.Fatalf("ParseItems() error = %v", err)
	}

	want := []ItemRow{
		{FoodType: "과자", Items: "산가, 세균수"},
		{FoodType: "캔디류", Items: "타르색소 납"},
		{FoodType: "소시지", Items: "아질산이온"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("ParseItems() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseItems_WithinNode(t *testing.T) {
	rows, err := ParseItems(strings.NewReader(itemPage), "question_229")
	if err != nil {
		t.Fatalf("ParseItems() error = %v", err)
	}
	if diff := cmp.Diff([]ItemRow{{FoodType: "소시지", Items: "아질산이온"}}, rows); diff != "" {
		t.Errorf("ParseItems() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseItems_Errors(t *testing.T) {
	if _, err := ParseItems(strings.NewReader("<p>no tables</p>"), ""); !errors.Is(err, ErrNoTable) {
		t.Errorf("error = %v, want ErrNoTable", err)
	}
	if _, err := ParseItems(strings.NewReader(itemPage), "question_999"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("error = %v, want ErrNodeNotFound", err)
	}
}

func TestParseCycles(t *testing.T) {
	rows, err := ParseCycles(strings.NewReader(cyclePage), "question_236")
	if err != nil {
		t.Fatalf("ParseCycles() error = %v", err)
	}

	want := []CycleRow{
		{FoodGroup: "과자류", FoodType: "과자", Cycle: "6개월 1회"},
		{FoodGroup: "과자류", FoodType: "캔디류", Cycle: "6개월 1회"},
		{FoodGroup: "음료류", FoodType: "과채주스", Cycle: "1년 1회"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("ParseCycles() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCycles_Errors(t *testing.T) {
	if _, err := ParseCycles(strings.NewReader(cyclePage), "question_239"); !errors.Is(err, ErrNoTable) {
		t.Errorf("error = %v, want ErrNoTable", err)
	}
	if _, err := ParseCycles(strings.NewReader(cyclePage), "question_1"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("error = %v, want ErrNodeNotFound", err)
	}
}

func TestSplitFoodTypes(t *testing.T) {
	tests := []struct {
		cell string
		want []string
	}{
		{"과자, 음료", []string{"과자", "음료"}},
		{"과자", []string{"과자"}},
		{" , 과자,,음료 ,", []string{"과자", "음료"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, SplitFoodTypes(tt.cell)); diff != "" {
				t.Errorf("SplitFoodTypes(%q) mismatch (-want +got):\n%s", tt.cell, diff)
			}
		})
	}
}
