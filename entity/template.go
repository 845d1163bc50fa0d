package entity

import (
	"fmt"
	"regexp"
	"strings"
)

type TemplateStatus uint32

const (
	TemplateStatusUnknown TemplateStatus = iota
	TemplateStatusNormal
	TemplateStatusDeleted
)

type EmailTemplate struct {
	ID         *uint64        `json:"id,omitempty"`
	TenantID   *uint64        `json:"tenant_id,omitempty"`
	Name       *string        `json:"name,omitempty"`
	Subject    *string        `json:"subject,omitempty"`
	HtmlBody   *string        `json:"html_body,omitempty"`
	Status     TemplateStatus `json:"status,omitempty"`
	CreateTime *uint64        `json:"create_time,omitempty"`
	UpdateTime *uint64        `json:"update_time,omitempty"`
}

func (e *EmailTemplate) GetID() uint64 {
	if e != nil && e.ID != nil {
		return *e.ID
	}
	return 0
}

func (e *EmailTemplate) GetSubject() string {
	if e != nil && e.Subject != nil {
		return *e.Subject
	}
	return ""
}

func (e *EmailTemplate) GetHtmlBody() string {
	if e != nil && e.HtmlBody != nil {
		return *e.HtmlBody
	}
	return ""
}

// Token synonyms accepted in templates, per logical field. Both
// {TOKEN} and {{TOKEN}} spellings are recognized, case-insensitively.
var (
	nameTokens    = []string{"prenom", "first_name", "firstname", "contact_name", "nom", "name"}
	companyTokens = []string{"company_name", "company", "societe", "entreprise"}
	emailTokens   = []string{"lead_email", "email", "mail"}
)

type tokenRule struct {
	re       *regexp.Regexp
	collapse *regexp.Regexp
	value    func(l *Lead) string
}

func newTokenRule(tokens []string, value func(l *Lead) string) tokenRule {
	alts := strings.Join(tokens, "|")
	pattern := fmt.Sprintf(`(?i)\{\{\s*(?:%s)\s*\}\}|\{\s*(?:%s)\s*\}`, alts, alts)
	return tokenRule{
		re:       regexp.MustCompile(pattern),
		collapse: regexp.MustCompile(`[ \t]*` + pattern),
		value:    value,
	}
}

var tokenRules = []tokenRule{
	newTokenRule(nameTokens, func(l *Lead) string { return strings.TrimSpace(l.GetFirstName()) }),
	newTokenRule(companyTokens, func(l *Lead) string { return strings.TrimSpace(l.GetCompany()) }),
	newTokenRule(emailTokens, func(l *Lead) string { return strings.TrimSpace(l.GetEmail()) }),
}

// Personalize substitutes recipient tokens into s. When a field has
// no value, the token and its leading whitespace are removed so that
// "Bonjour {{PRENOM}}," degrades to "Bonjour," instead of leaking a
// raw token into the output.
func Personalize(s string, lead *Lead) string {
	for _, r := range tokenRules {
		v := r.value(lead)
		if v == "" {
			s = r.collapse.ReplaceAllString(s, "")
			continue
		}
		s = r.re.ReplaceAllLiteralString(s, v)
	}
	return s
}
