package browser

import (
	"strings"
)

// InputInfo describes one interactive input element.
type InputInfo struct {
	Tag         string `json:"tag"`
	Type        string `json:"type,omitempty"`
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Visible     bool   `json:"visible"`
}

// SelectInfo describes a native select and up to 10 of its options.
type SelectInfo struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name,omitempty"`
	Options []string `json:"options"`
	Visible bool     `json:"visible"`
}

// ButtonInfo describes a clickable button/link/label.
type ButtonInfo struct {
	Text    string `json:"text"`
	ID      string `json:"id,omitempty"`
	Type    string `json:"type,omitempty"`
	Visible bool   `json:"visible"`
}

// PageInfo is the structured inventory produced by get_page_info
// (spec.md §4.1). It never captures a screenshot; callers reuse the
// most recent screenshot of the same page.
type PageInfo struct {
	URL        string       `json:"url"`
	Title      string       `json:"title"`
	Inputs     []InputInfo  `json:"inputs"`
	Selects    []SelectInfo `json:"selects"`
	Textareas  []InputInfo  `json:"textareas"`
	Buttons    []ButtonInfo `json:"buttons"`
}

// chromeSelectors are obvious non-form widgets filtered from the
// inventory: chat bubbles, feedback popovers, cookie banners.
var chromeSelectors = []string{
	"intercom", "drift-widget", "zendesk", "feedback-popover",
	"cookie-banner", "chat-widget", "livechat",
}

func isChrome(idOrClass string) bool {
	lower := strings.ToLower(idOrClass)
	for _, needle := range chromeSelectors {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

// GetPageInfo extracts the element inventory for the current page.
func (d *Driver) GetPageInfo() (*PageInfo, error) {
	info := &PageInfo{URL: d.page.URL()}

	if title, err := d.page.Title(); err == nil {
		info.Title = title
	}

	inputs, err := d.extractInputs()
	if err != nil {
		return nil, err
	}
	info.Inputs = inputs

	selects, err := d.extractSelects()
	if err != nil {
		return nil, err
	}
	info.Selects = selects

	textareas, err := d.extractTextareas()
	if err != nil {
		return nil, err
	}
	info.Textareas = textareas

	buttons, err := d.extractButtons()
	if err != nil {
		return nil, err
	}
	info.Buttons = buttons

	return info, nil
}

func (d *Driver) extractInputs() ([]InputInfo, error) {
	locator := d.page.Locator("input")
	count, err := locator.Count()
	if err != nil {
		return nil, err
	}

	var out []InputInfo
	for i := 0; i < count; i++ {
		el := locator.Nth(i)
		id, _ := el.GetAttribute("id")
		class, _ := el.GetAttribute("class")
		if isChrome(id) || isChrome(class) {
			continue
		}
		typ, _ := el.GetAttribute("type")
		name, _ := el.GetAttribute("name")
		placeholder, _ := el.GetAttribute("placeholder")
		visible, _ := el.IsVisible()
		out = append(out, InputInfo{
			Tag:         "input",
			Type:        typ,
			ID:          id,
			Name:        name,
			Placeholder: placeholder,
			Visible:     visible,
		})
	}
	return out, nil
}

func (d *Driver) extractSelects() ([]SelectInfo, error) {
	locator := d.page.Locator("select")
	count, err := locator.Count()
	if err != nil {
		return nil, err
	}

	var out []SelectInfo
	for i := 0; i < count; i++ {
		el := locator.Nth(i)
		id, _ := el.GetAttribute("id")
		name, _ := el.GetAttribute("name")
		visible, _ := el.IsVisible()

		var options []string
		optionLocator := el.Locator("option")
		optCount, err := optionLocator.Count()
		if err == nil {
			limit := optCount
			if limit > 10 {
				limit = 10
			}
			for j := 0; j < limit; j++ {
				text, err := optionLocator.Nth(j).TextContent()
				if err == nil {
					options = append(options, strings.TrimSpace(text))
				}
			}
		}

		out = append(out, SelectInfo{ID: id, Name: name, Options: options, Visible: visible})
	}
	return out, nil
}

func (d *Driver) extractTextareas() ([]InputInfo, error) {
	locator := d.page.Locator("textarea")
	count, err := locator.Count()
	if err != nil {
		return nil, err
	}

	var out []InputInfo
	for i := 0; i < count; i++ {
		el := locator.Nth(i)
		id, _ := el.GetAttribute("id")
		name, _ := el.GetAttribute("name")
		placeholder, _ := el.GetAttribute("placeholder")
		visible, _ := el.IsVisible()
		out = append(out, InputInfo{Tag: "textarea", ID: id, Name: name, Placeholder: placeholder, Visible: visible})
	}
	return out, nil
}

func (d *Driver) extractButtons() ([]ButtonInfo, error) {
	locator := d.page.Locator("button, a[role=button], input[type=submit], input[type=button]")
	count, err := locator.Count()
	if err != nil {
		return nil, err
	}

	var out []ButtonInfo
	for i := 0; i < count; i++ {
		el := locator.Nth(i)
		id, _ := el.GetAttribute("id")
		class, _ := el.GetAttribute("class")
		if isChrome(id) || isChrome(class) {
			continue
		}
		typ, _ := el.GetAttribute("type")
		text, _ := el.TextContent()
		visible, _ := el.IsVisible()
		out = append(out, ButtonInfo{Text: strings.TrimSpace(text), ID: id, Type: typ, Visible: visible})
	}
	return out, nil
}
