package compose

import (
	"context"
	"strings"
)

// Template is the static strategy. It has no side effects.
type Template struct {
	Subject   string
	Signature string
}

// Compose implements Composer.
func (t Template) Compose(_ context.Context, req Request) (Message, error) {
	subject := t.Subject
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}
	return Message{
		Subject: subject,
		Body:    TemplateBodySigned(req.Recipient.ContactName, req.Recipient.School, t.Signature),
	}, nil
}

// TemplateBody renders the fixed outreach message with the default signature.
func TemplateBody(contactName, school string) string {
	return TemplateBodySigned(contactName, school, DefaultSignature)
}

// TemplateBodySigned renders the fixed outreach message. A blank contact name is
// greeted as "there"; a blank signature falls back to DefaultSignature.
func TemplateBodySigned(contactName, school, signature string) string {
	name := strings.TrimSpace(contactName)
	if name == "" {
		name = "there"
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		signature = DefaultSignature
	}

	var b strings.Builder
	b.WriteString("Hi " + name + ",\n\n")
	b.WriteString("We’re connecting with local schools to understand how parent and community involvement is organized. ")
	b.WriteString("I came across " + strings.TrimSpace(school) + " and was hoping you might know the best contact for your PTO or parent leadership team.\n\n")
	b.WriteString("Any direction would be a big help — thank you!\n\n")
	b.WriteString("Best,\n")
	b.WriteString(signature + "\n")
	return b.String()
}
