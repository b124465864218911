package linkedin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/browser"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/form"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/jobs"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/resolver"
)

const (
	easyApplyButton = "button.jobs-apply-button[aria-label*='Easy Apply']"
	modalSelector   = ".jobs-easy-apply-modal, [data-test-modal-id='easy-apply-modal']"
	nextButton      = "button[aria-label='Continue to next step']"
	reviewButton    = "button[aria-label='Review your application']"
	submitButton    = "button[aria-label='Submit application']"
	dismissButton   = "button[aria-label='Dismiss']"
	discardButton   = "button[data-control-name='discard_application_confirm_btn'], button[data-test-dialog-primary-btn]"
	errorSelector   = ".artdeco-inline-feedback--error"
	followCheckbox  = "#follow-company-checkbox"
	resumeSelected  = ".jobs-resume-picker__resume--selected, .jobs-document-upload-redesign-card__container--selected"
)

var (
	successTexts  = []string{"application sent", "your application was sent", "application submitted"}
	rejectedTexts = []string{"easy apply limit", "no longer accepting applications", "you can no longer apply"}

	errUnconfirmed = errors.New("no confirmation after submit")
	attrEscaper    = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
)

type choiceOption struct {
	label string
	value string
	// control is clicked to pick the option; empty for select elements.
	control string
}

// EasyApply drives the Easy Apply modal. It implements form.Driver.
type EasyApply struct {
	client  *Client
	posting *jobs.Posting
	choices map[string][]choiceOption
}

var _ form.Driver = (*EasyApply)(nil)

// EasyApply returns a form driver bound to the client's browser session.
func (c *Client) EasyApply() *EasyApply {
	return &EasyApply{client: c, choices: make(map[string][]choiceOption)}
}

func (d *EasyApply) Open(ctx context.Context, posting *jobs.Posting) error {
	if !posting.EasyApply {
		return form.ErrNoEntryPoint
	}
	b := d.client.browser

	current, err := b.CurrentURL(ctx)
	if err != nil {
		return err
	}
	if !strings.Contains(current, "/jobs/view/"+posting.ID) {
		url := posting.URL
		if url == "" {
			url = d.client.JobURL(posting.ID)
		}
		if err := d.client.navigate(ctx, url); err != nil {
			return err
		}
	}

	if text, err := d.pageText(ctx); err == nil && containsAny(text, rejectedTexts) {
		return form.ErrRejected
	}

	button, err := b.Find(ctx, easyApplyButton)
	if err != nil {
		return fmt.Errorf("easy apply button: %w", err)
	}
	if err := b.Click(ctx, button); err != nil {
		return err
	}
	if err := d.client.settle(ctx); err != nil {
		return err
	}
	if _, err := b.Find(ctx, modalSelector); err != nil {
		return fmt.Errorf("easy apply modal: %w", err)
	}
	d.posting = posting
	return nil
}

// Fields reads the inputs of the current modal step.
func (d *EasyApply) Fields(ctx context.Context) ([]form.Field, error) {
	_, modal, err := d.modal(ctx)
	if err != nil {
		return nil, err
	}

	d.choices = make(map[string][]choiceOption)
	var fields []form.Field

	modal.Find("fieldset").Each(func(_ int, set *goquery.Selection) {
		radios := set.Find("input[type='radio']")
		if radios.Length() == 0 {
			return
		}
		id := groupSelector(set, radios)
		if id == "" {
			return
		}
		field := form.Field{
			ID:       id,
			Label:    labelText(set.Find("legend").First()),
			Kind:     form.FieldChoice,
			Required: isRequired(set) || isRequired(radios.First()),
			Invalid:  isInvalid(set) || set.Find(errorSelector).Length() > 0,
		}
		radios.Each(func(_ int, radio *goquery.Selection) {
			radioID, _ := radio.Attr("id")
			value, _ := radio.Attr("value")
			label := value
			control := elementSelector(radio)
			if radioID != "" {
				if l := modal.Find(`label[for="` + attrEscaper.Replace(radioID) + `"]`); l.Length() > 0 {
					label = labelText(l.First())
					control = `label[for="` + attrEscaper.Replace(radioID) + `"]`
				}
			}
			if _, checked := radio.Attr("checked"); checked {
				field.Filled = true
			}
			field.Options = append(field.Options, label)
			d.choices[id] = append(d.choices[id], choiceOption{label: label, value: value, control: control})
		})
		fields = append(fields, field)
	})

	modal.Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
		field, ok := d.inputField(modal, s)
		if ok {
			fields = append(fields, field)
		}
	})
	return fields, nil
}

func (d *EasyApply) inputField(modal, s *goquery.Selection) (form.Field, bool) {
	tag := goquery.NodeName(s)
	typ := strings.ToLower(s.AttrOr("type", "text"))
	if tag == "input" {
		switch typ {
		case "radio", "hidden", "submit", "button", "search", "image", "reset":
			return form.Field{}, false
		}
	}
	if id, _ := s.Attr("id"); "#"+id == followCheckbox {
		return form.Field{}, false
	}

	id := elementSelector(s)
	if id == "" {
		return form.Field{}, false
	}
	field := form.Field{
		ID:       id,
		Label:    inputLabel(modal, s),
		Required: isRequired(s),
		Invalid:  isInvalid(s),
	}

	switch {
	case tag == "select":
		field.Kind = form.FieldChoice
		s.Find("option").Each(func(_ int, opt *goquery.Selection) {
			label := collapse(opt.Text())
			value := opt.AttrOr("value", label)
			field.Options = append(field.Options, label)
			d.choices[id] = append(d.choices[id], choiceOption{label: label, value: value})
			if _, selected := opt.Attr("selected"); selected && value != "" && !strings.EqualFold(label, "Select an option") {
				field.Filled = true
			}
		})
	case tag == "textarea":
		field.Kind = form.FieldText
		field.Filled = strings.TrimSpace(s.Text()) != ""
	case typ == "file":
		field.Kind = form.FieldFile
		lower := strings.ToLower(field.Label)
		field.Filled = modal.Find(resumeSelected).Length() > 0 && !strings.Contains(lower, "cover")
	case typ == "checkbox":
		field.Kind = form.FieldBool
		_, field.Filled = s.Attr("checked")
	default:
		field.Kind = form.FieldText
		if typ == "number" || strings.Contains(strings.ToLower(s.AttrOr("id", "")), "numeric") {
			field.Kind = form.FieldNumber
		}
		field.Filled = strings.TrimSpace(s.AttrOr("value", "")) != ""
	}
	return field, true
}

func (d *EasyApply) Fill(ctx context.Context, field form.Field, answer resolver.Answer) error {
	b := d.client.browser
	switch field.Kind {
	case form.FieldChoice:
		options := d.choices[field.ID]
		if answer.Choice < 0 || answer.Choice >= len(options) {
			return fmt.Errorf("option %d of %q does not exist", answer.Choice, field.Label)
		}
		opt := options[answer.Choice]
		if opt.control != "" {
			el, err := b.Find(ctx, opt.control)
			if err != nil {
				return err
			}
			return b.Click(ctx, el)
		}
		el, err := b.Find(ctx, field.ID)
		if err != nil {
			return err
		}
		return b.SelectOption(ctx, el, opt.value)
	case form.FieldBool:
		el, err := b.Find(ctx, field.ID)
		if err != nil {
			return err
		}
		checked, err := b.Checked(ctx, el)
		if err != nil {
			return err
		}
		if checked == answer.Bool {
			return nil
		}
		if id := el.Attr("id"); id != "" {
			if label, err := b.Find(ctx, `label[for="`+attrEscaper.Replace(id)+`"]`); err == nil {
				return b.Click(ctx, label)
			}
		}
		return b.Click(ctx, el)
	default:
		el, err := b.Find(ctx, field.ID)
		if err != nil {
			return err
		}
		return b.Type(ctx, el, answer.String())
	}
}

func (d *EasyApply) Upload(ctx context.Context, field form.Field, path string) error {
	el, err := d.client.browser.Find(ctx, field.ID)
	if err != nil {
		return err
	}
	return d.client.browser.SetFiles(ctx, el, path)
}

// Advance clicks the next or review button and reports the resulting page.
func (d *EasyApply) Advance(ctx context.Context) (form.Page, error) {
	modal, page, done, err := d.step(ctx)
	if done {
		return page, err
	}

	for _, selector := range []string{nextButton, reviewButton} {
		if modal.Find(selector).Length() == 0 {
			continue
		}
		el, err := d.client.browser.Find(ctx, selector)
		if err != nil {
			return form.PageForm, err
		}
		if err := d.client.browser.Click(ctx, el); err != nil {
			return form.PageForm, err
		}
		if err := d.client.settle(ctx); err != nil {
			return form.PageForm, err
		}

		modal, page, done, err = d.step(ctx)
		if done {
			return page, err
		}
		if modal.Find(errorSelector).Length() > 0 {
			return form.PageForm, form.ErrValidation
		}
		return form.PageForm, nil
	}
	return form.PageForm, fmt.Errorf("no button to advance: %w", browser.ErrNotFound)
}

// step reads the current modal. done is set once the flow has ended or the
// submit button is shown.
func (d *EasyApply) step(ctx context.Context) (modal *goquery.Selection, page form.Page, done bool, err error) {
	doc, modal, err := d.modal(ctx)
	if doc == nil {
		return nil, form.PageForm, true, err
	}
	text := strings.ToLower(doc.Text())
	switch {
	case containsAny(text, rejectedTexts):
		return modal, form.PageForm, true, form.ErrRejected
	case containsAny(text, successTexts):
		return modal, form.PageSubmitted, true, nil
	case err != nil:
		return nil, form.PageForm, true, err
	case modal.Find(submitButton).Length() > 0:
		return modal, form.PageReview, true, nil
	}
	return modal, form.PageForm, false, nil
}

// Submit unticks the follow box when configured and submits the application.
func (d *EasyApply) Submit(ctx context.Context) error {
	b := d.client.browser
	if !d.client.opts.FollowCompanies {
		d.unfollow(ctx)
	}

	el, err := b.Find(ctx, submitButton)
	if err != nil {
		return err
	}
	if err := b.Click(ctx, el); err != nil {
		return err
	}
	if err := d.client.settle(ctx); err != nil {
		return err
	}

	text, err := d.pageText(ctx)
	if err != nil {
		if errors.Is(err, browser.ErrStaleSession) {
			return err
		}
		return fmt.Errorf("%w: %v", errUnconfirmed, err)
	}
	if containsAny(text, successTexts) {
		if el, err := b.Find(ctx, dismissButton); err == nil {
			_ = b.Click(ctx, el)
		}
		return nil
	}
	if containsAny(text, rejectedTexts) {
		return form.ErrRejected
	}
	return errUnconfirmed
}

func (d *EasyApply) unfollow(ctx context.Context) {
	b := d.client.browser
	box, err := b.Find(ctx, followCheckbox)
	if err != nil {
		return
	}
	if checked, err := b.Checked(ctx, box); err != nil || !checked {
		return
	}
	target := box
	if label, err := b.Find(ctx, `label[for="follow-company-checkbox"]`); err == nil {
		target = label
	}
	if err := b.Click(ctx, target); err != nil {
		d.client.logger.Debug("untick follow company", zap.Error(err))
	}
}

// Abort dismisses the modal and discards the draft application.
func (d *EasyApply) Abort(ctx context.Context) error {
	b := d.client.browser
	for _, selector := range []string{dismissButton, discardButton} {
		el, err := b.Find(ctx, selector)
		if errors.Is(err, browser.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := b.Click(ctx, el); err != nil {
			return err
		}
		if err := d.client.settle(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (d *EasyApply) modal(ctx context.Context) (*goquery.Document, *goquery.Selection, error) {
	html, err := d.client.browser.HTML(ctx)
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("parse page: %w", err)
	}
	modal := doc.Find(modalSelector).First()
	if modal.Length() == 0 {
		return doc, nil, fmt.Errorf("easy apply modal: %w", browser.ErrNotFound)
	}
	return doc, modal, nil
}

func (d *EasyApply) pageText(ctx context.Context) (string, error) {
	html, err := d.client.browser.HTML(ctx)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	return strings.ToLower(collapse(doc.Text())), nil
}

func elementSelector(s *goquery.Selection) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		return `[id="` + attrEscaper.Replace(id) + `"]`
	}
	if name, ok := s.Attr("name"); ok && name != "" {
		return goquery.NodeName(s) + `[name="` + attrEscaper.Replace(name) + `"]`
	}
	return ""
}

func groupSelector(set, radios *goquery.Selection) string {
	if id, ok := set.Attr("id"); ok && id != "" {
		return `[id="` + attrEscaper.Replace(id) + `"]`
	}
	if name, ok := radios.First().Attr("name"); ok && name != "" {
		return `input[name="` + attrEscaper.Replace(name) + `"]`
	}
	return ""
}

func inputLabel(modal, s *goquery.Selection) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		if l := modal.Find(`label[for="` + attrEscaper.Replace(id) + `"]`); l.Length() > 0 {
			if text := labelText(l.First()); text != "" {
				return text
			}
		}
	}
	for _, attr := range []string{"aria-label", "placeholder", "name"} {
		if v := collapse(s.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

// labelText prefers the visible copy; labels often repeat the text for screen readers.
func labelText(s *goquery.Selection) string {
	if visible := s.Find("span[aria-hidden='true']").First(); visible.Length() > 0 {
		if text := collapse(visible.Text()); text != "" {
			return strings.TrimSpace(strings.TrimSuffix(text, "*"))
		}
	}
	return strings.TrimSpace(strings.TrimSuffix(collapse(s.Text()), "*"))
}

func isRequired(s *goquery.Selection) bool {
	_, required := s.Attr("required")
	return required || s.AttrOr("aria-required", "") == "true"
}

func isInvalid(s *goquery.Selection) bool {
	return s.AttrOr("aria-invalid", "") == "true"
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
