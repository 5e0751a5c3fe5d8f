// internal/collections/render.go
package collections

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"collections-reminders/internal/common/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const displayDateLayout = "02/01/2006"

// Placeholders recognized in custom messages and library templates. Matching is case-sensitive.
const (
	TokenStudentName  = "{{student_name}}"
	TokenGuardianName = "{{guardian_name}}"
	TokenAmount       = "{{amount}}"
	TokenDueDate      = "{{due_date}}"
	TokenPaymentLink  = "{{payment_link}}"
	TokenCount        = "{{count}}"
)

// DefaultReminderText is used when a rule has neither a custom message nor a resolvable template.
const DefaultReminderText = "Olá {{guardian_name}}, lembramos que há {{count}} parcela(s) de {{student_name}} " +
	"no valor total de {{amount}} com vencimento em {{due_date}}. Para pagar acesse: {{payment_link}}"

// Formatter renders amounts and dates for one locale.
type Formatter struct {
	symbol string
	group  string
	point  string
}

func NewFormatter(locale, currencySymbol string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	group, point := separators(message.NewPrinter(tag))
	return &Formatter{symbol: currencySymbol, group: group, point: point}, nil
}

// separators reads the locale's grouping and decimal marks off a sample number.
func separators(p *message.Printer) (group, point string) {
	r := []rune(p.Sprintf("%.1f", 1234.5))
	point = string(r[len(r)-2])
	if len(r) > len("1234.5") {
		group = string(r[1])
	}
	return group, point
}

// Money formats v with two decimals using the locale's grouping and decimal
// separators. The digits come from the decimal itself, never from a float.
func (f *Formatter) Money(v decimal.Decimal) string {
	fixed := v.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, d := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(f.group)
		}
		b.WriteRune(d)
	}
	b.WriteString(f.point)
	b.WriteString(frac)

	if f.symbol == "" {
		return b.String()
	}
	return f.symbol + " " + b.String()
}

// Date formats a due date as DD/MM/YYYY.
func (f *Formatter) Date(d Date) string {
	return d.Format(displayDateLayout)
}

// Params builds the placeholder bag for a debtor group.
func (f *Formatter) Params(g DebtorGroup) Params {
	return Params{
		StudentName:  g.Debtor.StudentName,
		GuardianName: g.Debtor.GuardianName,
		Amount:       f.Money(g.Total),
		DueDate:      f.Date(g.DueDate),
		PaymentLink:  g.PaymentLink(),
		Count:        g.Count(),
	}
}

// Renderer resolves the message text for a rule.
type Renderer struct {
	library TemplateLibrary
	logger  logger.Logger
}

func NewRenderer(library TemplateLibrary, log logger.Logger) *Renderer {
	return &Renderer{library: library, logger: log}
}

// Render picks the custom message, the library template or the default text, in that
// order, and substitutes params. A library lookup error other than ErrNotFound is returned.
func (r *Renderer) Render(ctx context.Context, rule Rule, params Params) (string, error) {
	text, err := r.resolveText(ctx, rule)
	if err != nil {
		return "", err
	}
	return Substitute(text, params), nil
}

func (r *Renderer) resolveText(ctx context.Context, rule Rule) (string, error) {
	if rule.UseCustomMessage && strings.TrimSpace(rule.CustomMessage) != "" {
		return rule.CustomMessage, nil
	}

	if rule.TemplateKey != "" && r.library != nil {
		tmpl, err := r.library.LookupTemplate(ctx, rule.TemplateKey)
		switch {
		case err == nil && tmpl != nil && tmpl.Body != "":
			if tmpl.Title != "" {
				return "*" + tmpl.Title + "*\n\n" + tmpl.Body, nil
			}
			return tmpl.Body, nil
		case err != nil && !errors.Is(err, ErrNotFound):
			return "", fmt.Errorf("lookup template %q: %w", rule.TemplateKey, err)
		}
		r.logger.Debug("template not found, using default text", map[string]interface{}{
			"ruleId":      rule.ID,
			"templateKey": rule.TemplateKey,
		})
	}

	return DefaultReminderText, nil
}

// Substitute replaces every known placeholder. Unknown tokens are left untouched.
func Substitute(text string, p Params) string {
	return strings.NewReplacer(
		TokenStudentName, p.StudentName,
		TokenGuardianName, p.GuardianName,
		TokenAmount, p.Amount,
		TokenDueDate, p.DueDate,
		TokenPaymentLink, p.PaymentLink,
		TokenCount, strconv.Itoa(p.Count),
	).Replace(text)
}
