package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"fixmystreet/internal/types"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// RenderedEmail holds the pre-rendered email content ready for transmission.
type RenderedEmail struct {
	Subject  string
	BodyHTML string
	BodyText string
}

// TemplateService renders a queued message into subject and bodies and picks
// the sender identity.
type TemplateService interface {
	Render(msg *types.NotificationMessage) (*RenderedEmail, types.SenderIdentity, error)
}

// templateData is the typed view of a message payload handed to templates.
type templateData struct {
	Subject        string
	ReportTitle    string
	ReportURL      string
	ConfirmURL     string
	UnsubscribeURL string
	Category       string
	Ward           string
	City           string
	Author         string
	Email          string
	Phone          string
	Desc           string
	PhotoURL       string
	CreatedAt      string
	Reason         string
	FlaggedBy      string
	IsFixed        bool
	FirstUpdate    bool
}

var kinds = []types.NotificationKind{
	types.KindConfirmUpdate,
	types.KindNewReport,
	types.KindReportUpdate,
	types.KindConfirmSubscription,
	types.KindFlagReport,
}

// Renderer renders messages with the embedded html/template and
// text/template files. One HTML and one plaintext template per kind; HTML
// templates are wrapped in templates/base.html.
type Renderer struct {
	htmlTemplates   map[types.NotificationKind]*template.Template
	textTemplates   map[types.NotificationKind]*texttemplate.Template
	defaultFromAddr string
	defaultFromName string
}

// RendererConfig holds the parameters needed to construct a Renderer.
type RendererConfig struct {
	DefaultFromAddr string
	DefaultFromName string
}

// NewRenderer parses the embedded templates. Any parse failure is returned.
func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	r := &Renderer{
		htmlTemplates:   make(map[types.NotificationKind]*template.Template, len(kinds)),
		textTemplates:   make(map[types.NotificationKind]*texttemplate.Template, len(kinds)),
		defaultFromAddr: cfg.DefaultFromAddr,
		defaultFromName: cfg.DefaultFromName,
	}

	baseHTML, err := templateFS.ReadFile("templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to read base.html: %w", err)
	}

	for _, kind := range kinds {
		name := string(kind)

		htmlContent, err := templateFS.ReadFile(fmt.Sprintf("templates/%s.html", name))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to read %s.html: %w", name, err)
		}
		htmlTmpl, err := template.New("base").Parse(string(baseHTML))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to parse base.html: %w", err)
		}
		if _, err := htmlTmpl.Parse(string(htmlContent)); err != nil {
			return nil, fmt.Errorf("renderer: failed to parse %s.html: %w", name, err)
		}
		r.htmlTemplates[kind] = htmlTmpl

		txtContent, err := templateFS.ReadFile(fmt.Sprintf("templates/%s.txt", name))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to read %s.txt: %w", name, err)
		}
		txtTmpl, err := texttemplate.New(name).Parse(string(txtContent))
		if err != nil {
			return nil, fmt.Errorf("renderer: failed to parse %s.txt: %w", name, err)
		}
		r.textTemplates[kind] = txtTmpl
	}

	return r, nil
}

// Render implements TemplateService. An unknown kind yields
// ErrCodeInternalTemplate.
func (r *Renderer) Render(msg *types.NotificationMessage) (*RenderedEmail, types.SenderIdentity, error) {
	if msg == nil {
		return nil, types.SenderIdentity{}, fmt.Errorf("renderer: message is nil")
	}

	htmlTmpl, ok := r.htmlTemplates[msg.Kind]
	if !ok {
		return nil, types.SenderIdentity{}, types.NewAppError(types.ErrCodeInternalTemplate,
			fmt.Sprintf("no HTML template for kind %q", msg.Kind), nil)
	}
	txtTmpl, ok := r.textTemplates[msg.Kind]
	if !ok {
		return nil, types.SenderIdentity{}, types.NewAppError(types.ErrCodeInternalTemplate,
			fmt.Sprintf("no text template for kind %q", msg.Kind), nil)
	}

	data := buildTemplateData(msg)

	var htmlBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return nil, types.SenderIdentity{}, types.NewAppError(types.ErrCodeInternalTemplate,
			fmt.Sprintf("failed to render HTML for %q", msg.Kind), err)
	}

	var txtBuf bytes.Buffer
	if err := txtTmpl.Execute(&txtBuf, data); err != nil {
		return nil, types.SenderIdentity{}, types.NewAppError(types.ErrCodeInternalTemplate,
			fmt.Sprintf("failed to render text for %q", msg.Kind), err)
	}

	sender := types.SenderIdentity{
		Address: r.defaultFromAddr,
		Name:    r.defaultFromName,
	}

	return &RenderedEmail{
		Subject:  data.Subject,
		BodyHTML: htmlBuf.String(),
		BodyText: txtBuf.String(),
	}, sender, nil
}

func buildTemplateData(msg *types.NotificationMessage) templateData {
	p := msg.Payload
	data := templateData{
		ReportTitle:    stringFromPayload(p, "report_title"),
		ReportURL:      stringFromPayload(p, "report_url"),
		ConfirmURL:     stringFromPayload(p, "confirm_url"),
		UnsubscribeURL: stringFromPayload(p, "unsubscribe_url"),
		Category:       stringFromPayload(p, "category"),
		Ward:           stringFromPayload(p, "ward"),
		City:           stringFromPayload(p, "city"),
		Author:         stringFromPayload(p, "author"),
		Email:          stringFromPayload(p, "email"),
		Phone:          stringFromPayload(p, "phone"),
		Desc:           stringFromPayload(p, "desc"),
		PhotoURL:       stringFromPayload(p, "photo_url"),
		CreatedAt:      stringFromPayload(p, "created_at"),
		Reason:         stringFromPayload(p, "reason"),
		FlaggedBy:      stringFromPayload(p, "flagged_by"),
		IsFixed:        boolFromPayload(p, "is_fixed"),
		FirstUpdate:    boolFromPayload(p, "first_update"),
	}
	if data.PhotoURL == "" && len(msg.Attachments) > 0 {
		data.PhotoURL = msg.Attachments[0]
	}
	data.Subject = subjectFor(msg.Kind, data)
	return data
}

func subjectFor(kind types.NotificationKind, d templateData) string {
	title := d.ReportTitle
	switch kind {
	case types.KindConfirmUpdate:
		if d.FirstUpdate {
			return "Confirm your report: " + title
		}
		return "Confirm your update: " + title
	case types.KindNewReport:
		if d.Category != "" {
			return fmt.Sprintf("New %s report: %s", d.Category, title)
		}
		return "New report: " + title
	case types.KindReportUpdate:
		if d.IsFixed {
			return "Fixed: " + title
		}
		return "Update on: " + title
	case types.KindConfirmSubscription:
		return "Confirm your subscription: " + title
	case types.KindFlagReport:
		return "Report flagged for review: " + title
	}
	return title
}

func stringFromPayload(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	v, ok := payload[key].(string)
	if !ok {
		return ""
	}
	return v
}

func boolFromPayload(payload map[string]any, key string) bool {
	if payload == nil {
		return false
	}
	v, _ := payload[key].(bool)
	return v
}

var _ TemplateService = (*Renderer)(nil)
