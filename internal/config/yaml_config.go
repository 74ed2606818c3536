package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the structure of the config.yaml file.
// Crawl sources and menu content are easier to manage in YAML than env vars.
type YAMLConfig struct {
	Sources []SourceConfig `yaml:"sources"`
	// InfoPages is nil when the file does not mention it; an explicit empty
	// list disables info crawling.
	InfoPages []InfoPageConfig `yaml:"info_pages"`
	Menu      MenuConfig       `yaml:"menu"`
}

// SourceConfig defines where one category's tables are published.
type SourceConfig struct {
	Category      string               `yaml:"category"`                // "식품" or "축산"
	ItemURL       string               `yaml:"item_url"`                // Static page with item tables
	ItemPopupID   string               `yaml:"item_popup_id,omitempty"` // Restrict item parsing to this node
	CycleURL      string               `yaml:"cycle_url"`               // Script-rendered page with cycle tables
	BusinessTypes []BusinessTypeSource `yaml:"business_types"`
}

// BusinessTypeSource maps a business type to the DOM node holding its cycle table.
type BusinessTypeSource struct {
	Name   string `yaml:"name"`
	NodeID string `yaml:"node_id"`
}

// InfoPageConfig is a script-rendered page holding guidance popups, such as a
// nutrition test table or a Q&A board.
type InfoPageConfig struct {
	Category string            `yaml:"category"`
	URL      string            `yaml:"url"`
	Popups   []InfoPopupConfig `yaml:"popups"`
}

// InfoPopupConfig selects one popup on an info page.
type InfoPopupConfig struct {
	ID      string `yaml:"id"`
	Topic   string `yaml:"topic,omitempty"`   // Defaults to the text of the link that opens the popup
	Section string `yaml:"section,omitempty"` // Keep only table rows under this section header
}

// MenuConfig holds the fixed texts of the payment and handoff sub-flows.
type MenuConfig struct {
	Banks        []BankConfig `yaml:"banks"`
	DepositNotes string       `yaml:"deposit_notes"`
	CardPayment  string       `yaml:"card_payment"`
	BankbookCopy string       `yaml:"bankbook_copy"`
	AgentHours   string       `yaml:"agent_hours"`
	AgentLink    string       `yaml:"agent_link"`
}

// BankConfig is one account offered for transfers.
type BankConfig struct {
	Name    string `yaml:"name"`
	Account string `yaml:"account"`
}

// LoadYAMLConfig loads the YAML configuration file.
// Path is determined by CONFIG_FILE env var, defaulting to "config.yaml".
// Returns the built-in defaults without error if the config file doesn't exist.
func LoadYAMLConfig() (*YAMLConfig, error) {
	path := getEnv("CONFIG_FILE", "config.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultYAMLConfig(), nil
		}
		return nil, err
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Fill whatever the file left out
	defaults := DefaultYAMLConfig()
	if len(cfg.Sources) == 0 {
		cfg.Sources = defaults.Sources
	}
	if cfg.InfoPages == nil {
		cfg.InfoPages = defaults.InfoPages
	}
	if len(cfg.Menu.Banks) == 0 {
		cfg.Menu.Banks = defaults.Menu.Banks
	}
	if cfg.Menu.DepositNotes == "" {
		cfg.Menu.DepositNotes = defaults.Menu.DepositNotes
	}
	if cfg.Menu.CardPayment == "" {
		cfg.Menu.CardPayment = defaults.Menu.CardPayment
	}
	if cfg.Menu.BankbookCopy == "" {
		cfg.Menu.BankbookCopy = defaults.Menu.BankbookCopy
	}
	if cfg.Menu.AgentHours == "" {
		cfg.Menu.AgentHours = defaults.Menu.AgentHours
	}
	if cfg.Menu.AgentLink == "" {
		cfg.Menu.AgentLink = defaults.Menu.AgentLink
	}

	return &cfg, nil
}

// DefaultYAMLConfig returns the site mapping and menu texts used when no file is present.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Sources: []SourceConfig{
			{
				Category: "식품",
				ItemURL:  "https://www.biofl.co.kr/sub.jsp?code=7r9P7y94&question_229",
				CycleURL: "https://www.biofl.co.kr/sub.jsp?code=7r9P7y94",
				BusinessTypes: []BusinessTypeSource{
					{Name: "식품제조가공업", NodeID: "question_236"},
					{Name: "즉석판매제조가공업", NodeID: "question_239"},
				},
			},
			{
				Category: "축산",
				ItemURL:  "https://www.biofl.co.kr/sub.jsp?code=XN0Cd4r7&question_230",
				CycleURL: "https://www.biofl.co.kr/sub.jsp?code=XN0Cd4r7",
				BusinessTypes: []BusinessTypeSource{
					{Name: "축산물제조가공업", NodeID: "question_200"},
					{Name: "축산물즉석판매제조가공업", NodeID: "question_210"},
				},
			},
		},
		InfoPages: []InfoPageConfig{
			boardPage("표시기준", "EJ2GKW3", span(161, 177)...),
			boardPage("잔류농약_항생물질", "MKJ9PKO0", span(82, 93)...),
			boardPage("방사능", "HY5KJJJI", span(37, 44)...),
			boardPage("영양성분", "JEKb3KXA", append(span(68, 81), span(207, 217)...)...),
			boardPage("소비기한", "PXXBybSV", span(94, 98)...),
			boardPage("알레르기", "G7K3Y2F9", append(span(26, 36), span(176, 183)...)...),
			boardPage("이물", "H5R6T8B3", append(span(122, 128), 138, 159, 187, 188)...),
			boardPage("비건_할랄_동물DNA", "D4P8L2M7", span(52, 62)...),
			boardPage("축산", "XN0Cd4r7", span(99, 120)...),
			boardPage("식품", "7r9P7y94",
				48, 50, 51, 53, 56, 57, 60, 62, 63, 64, 65, 162,
				191, 198, 199, 201, 208, 228, 229, 236, 239, 241),
		},
		Menu: MenuConfig{
			Banks: []BankConfig{
				{Name: "기업은행", Account: "024-088021-01-017"},
				{Name: "우리은행", Account: "1005-702-799176"},
				{Name: "농협은행", Account: "301-0178-1722-11"},
			},
			DepositNotes: "★ 입금시 '대표자명' 또는 '업체명'으로 입금 부탁드립니다.\n\n" +
				"★ 업체명으로 입금 진행시, [농업회사법인 주식회사]에서 잘리는 경우가 있습니다. " +
				"이와 같은 경우, 입금 확인이 늦어질 수 있으니 업체명을 식별할 수 있도록 표시 부탁드립니다.",
			CardPayment: "1. 방문 결제\n" +
				"2. 토스 링크페이 결제\n" +
				"3. 홈페이지 통하여 검사 진행 후, 마이페이지 카드 결제\n\n" +
				"━━━━━━━━━━━━━━━\n" +
				"* 영수증이 필요하신 분은 결제 창에서 이메일을 작성하셔야 합니다.",
			BankbookCopy: "통장 사본은 [자료실-문서자료실] 18번 게시글을 통하여 다운로드 가능합니다.\n\n" +
				"🔗 홈페이지: www.biofl.co.kr",
			AgentHours: "평일 09:00 ~ 17:00",
			AgentLink:  "http://pf.kakao.com/_uCxnvxl/chat",
		},
	}
}

// boardPage builds a Q&A board page whose popups are titled by their links.
func boardPage(category, code string, questions ...int) InfoPageConfig {
	page := InfoPageConfig{
		Category: category,
		URL:      "https://www.biofl.co.kr/sub.jsp?code=" + code,
	}
	for _, q := range questions {
		page.Popups = append(page.Popups, InfoPopupConfig{ID: fmt.Sprintf("question_%d", q)})
	}
	return page
}

func span(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

// GetSourceByCategory finds a crawl source by its category.
func (c *YAMLConfig) GetSourceByCategory(category string) *SourceConfig {
	if c == nil {
		return nil
	}
	for i := range c.Sources {
		if c.Sources[i].Category == category {
			return &c.Sources[i]
		}
	}
	return nil
}

// GetBank finds a bank by name.
func (m *MenuConfig) GetBank(name string) *BankConfig {
	for i := range m.Banks {
		if m.Banks[i].Name == name {
			return &m.Banks[i]
		}
	}
	return nil
}

// BankNames returns the configured bank names in order.
func (m *MenuConfig) BankNames() []string {
	names := make([]string, 0, len(m.Banks))
	for _, b := range m.Banks {
		names = append(names, b.Name)
	}
	return names
}
