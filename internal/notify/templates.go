// ABOUTME: Mail bodies for registration, edit and magic-link notifications
// ABOUTME: Renders embedded text templates with times shown in the display zone

package notify

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/2389/household-registry/internal/household"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// DateTimeLayout is how timestamps appear in mail bodies.
const DateTimeLayout = "2006/01/02 15:04:05"

// Renderer builds notification messages.
type Renderer struct {
	sender     string
	adminEmail string
	zone       *time.Location
	tmpl       *template.Template
}

// NewRenderer creates a Renderer. sender is the organization name shown in
// subjects and signatures; adminEmail receives registration notices and is
// given to families as the contact address.
func NewRenderer(sender, adminEmail string, zone *time.Location) (*Renderer, error) {
	if zone == nil {
		zone = time.UTC
	}
	r := &Renderer{sender: sender, adminEmail: adminEmail, zone: zone}
	tmpl, err := template.New("mail").Funcs(template.FuncMap{
		"datetime": r.formatTime,
		"orNone":   orNone,
		"inc":      func(i int) int { return i + 1 },
		"address": func(a household.Address) string {
			return orNone(a.Line())
		},
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing mail templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// AdminEmail returns the operator address.
func (r *Renderer) AdminEmail() string {
	return r.adminEmail
}

func (r *Renderer) formatTime(t time.Time) string {
	return t.In(r.zone).Format(DateTimeLayout)
}

func orNone(s string) string {
	if s == "" {
		return "未登録"
	}
	return s
}

type mailData struct {
	*household.Aggregate
	Sender     string
	AdminEmail string
	EditCode   string
	Link       string
	Expires    time.Time
	TTLMinutes int
}

func (r *Renderer) render(name string, data mailData) (string, error) {
	data.Sender = r.sender
	data.AdminEmail = r.adminEmail
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Confirmation is sent to the login email after a registration. It carries
// the edit code.
func (r *Renderer) Confirmation(agg *household.Aggregate, editCode string) (Message, error) {
	body, err := r.render("confirmation.tmpl", mailData{Aggregate: agg, EditCode: editCode})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      agg.Household.LoginEmail,
		Subject: fmt.Sprintf("【%s】登録完了のお知らせ", r.sender),
		Body:    body,
	}, nil
}

// AdminRegistration is the operator notice for a new household.
func (r *Renderer) AdminRegistration(agg *household.Aggregate) (Message, error) {
	body, err := r.render("admin_registration.tmpl", mailData{Aggregate: agg})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      r.adminEmail,
		Subject: "【新規登録】保護者情報が登録されました",
		Body:    body,
	}, nil
}

// EditNotice tells one guardian that the household was changed.
func (r *Renderer) EditNotice(agg *household.Aggregate, to string) (Message, error) {
	body, err := r.render("edit_notice.tmpl", mailData{Aggregate: agg})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("【%s】登録内容が変更されました", r.sender),
		Body:    body,
	}, nil
}

// MagicLink carries a one-time edit link.
func (r *Renderer) MagicLink(to, link string, expires time.Time, ttl time.Duration) (Message, error) {
	body, err := r.render("magic_link.tmpl", mailData{
		Link:       link,
		Expires:    expires,
		TTLMinutes: int(ttl / time.Minute),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("【%s】編集リンクの送信", r.sender),
		Body:    body,
	}, nil
}
