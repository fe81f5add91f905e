package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/mail"
	texttemplate "text/template"
)

//go:embed templates
var templateFS embed.FS

// Template is implemented by each notification's data type.
type Template interface {
	TemplateName() string
	Subject() string
}

type pair struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// Service renders notifications from the embedded templates. Each one has
// an HTML part wrapped in the shared layout and a plain text part.
type Service struct {
	sender    Sender
	from      string
	templates map[string]pair
}

// NewService parses the embedded templates up front so a broken template
// fails at startup rather than on the first order.
func NewService(sender Sender, fromAddress, fromName string) (*Service, error) {
	funcs := map[string]any{"cents": formatCents}

	templates := make(map[string]pair)
	for _, name := range []string{OrderConfirmationEmail{}.TemplateName()} {
		html, err := htmltemplate.New(name).Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s.html: %w", name, err)
		}
		text, err := texttemplate.New(name + ".txt").Funcs(funcs).
			ParseFS(templateFS, "templates/"+name+".txt")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s.txt: %w", name, err)
		}
		templates[name] = pair{html: html, text: text}
	}

	from := (&mail.Address{Name: fromName, Address: fromAddress}).String()
	if fromName == "" {
		from = fromAddress
	}
	return &Service{sender: sender, from: from, templates: templates}, nil
}

// SendOrderConfirmation mails the order summary to the customer.
func (s *Service) SendOrderConfirmation(ctx context.Context, data OrderConfirmationEmail) error {
	if data.Email == "" {
		return ErrNoRecipient
	}
	msg, err := s.render(data)
	if err != nil {
		return err
	}
	msg.To = []string{data.Email}
	msg.Headers = map[string]string{"X-Order-ID": data.OrderID}

	if _, err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send order confirmation for %s: %w", data.OrderID, err)
	}
	return nil
}

func (s *Service) render(data Template) (*Message, error) {
	t, ok := s.templates[data.TemplateName()]
	if !ok {
		return nil, fmt.Errorf("email template %s not found", data.TemplateName())
	}

	var html, text bytes.Buffer
	if err := t.html.ExecuteTemplate(&html, "email_layout", data); err != nil {
		return nil, fmt.Errorf("failed to render %s.html: %w", data.TemplateName(), err)
	}
	if err := t.text.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render %s.txt: %w", data.TemplateName(), err)
	}
	return &Message{
		From:    s.from,
		Subject: data.Subject(),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
