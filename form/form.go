// Package form collects structured follow-up input from the user when a
// response asks for it. Fields are processed strictly in the order the
// agent listed them: choice fields render as a numbered selection with
// forgiving matching, free-text fields accept any non-empty line. A cancel
// at any point abandons the whole form; partial results are never returned.
package form

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/m4xw311/agentchat/classify"
)

// ErrCanceled is returned when the user aborts the form, either with the
// cancel keyword or by closing the input stream.
var ErrCanceled = errors.New("form canceled")

// ErrNoMatch reports input that matched no option of a choice field.
var ErrNoMatch = errors.New("no matching option")

// ErrAmbiguous reports input that matched more than one option.
var ErrAmbiguous = errors.New("ambiguous input")

const cancelWord = "cancel"

var (
	fieldPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(0, 2)

	fieldTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().Faint(true)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// Result maps field names to the values the user submitted. It is built
// field by field and returned only once the whole form succeeded.
type Result struct {
	order  []string
	values map[string]string
}

// Get returns the submitted value for a field name.
func (r *Result) Get(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Len returns the number of collected fields.
func (r *Result) Len() int {
	return len(r.order)
}

// Payload serializes the result for the outbound reply: a single field
// collapses to its bare string value (the backward-compatible wire form),
// multiple fields become an object keyed by field name.
func (r *Result) Payload() any {
	if len(r.order) == 1 {
		return r.values[r.order[0]]
	}
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Collector prompts for form fields on a terminal.
type Collector struct {
	in  *bufio.Reader
	out io.Writer
}

// NewCollector reads user input from in and writes prompts to out.
func NewCollector(in io.Reader, out io.Writer) *Collector {
	return &Collector{in: bufio.NewReader(in), out: out}
}

// Collect walks the fields in order and returns the completed result. A
// canceled context, a cancel keyword or end of input aborts with
// ErrCanceled and no partial result. After the last field a summary of the
// collected values is shown.
func (c *Collector) Collect(ctx context.Context, fields []classify.InputField) (*Result, error) {
	res := &Result{values: make(map[string]string, len(fields))}

	for i, f := range fields {
		if err := ctx.Err(); err != nil {
			return nil, ErrCanceled
		}

		fmt.Fprintln(c.out, dimStyle.Render(fmt.Sprintf("Field %d of %d", i+1, len(fields))))
		c.showFieldPanel(f)

		var (
			value string
			err   error
		)
		if f.FreeText() {
			value, err = c.collectText(ctx, f)
		} else {
			value, err = c.collectChoice(ctx, f)
		}
		if err != nil {
			return nil, err
		}

		res.order = append(res.order, f.Name)
		res.values[f.Name] = value
		fmt.Fprintln(c.out)
	}

	c.showSummary(res)
	return res, nil
}

func (c *Collector) showFieldPanel(f classify.InputField) {
	desc := f.Description
	if desc == "" {
		desc = "Please provide " + f.Name
	}
	title := fieldTitleStyle.Render(prettyName(f.Name))
	fmt.Fprintf(c.out, "\n%s\n%s\n", title, fieldPanelStyle.Render(desc))
}

func (c *Collector) collectChoice(ctx context.Context, f classify.InputField) (string, error) {
	for i, v := range f.Values {
		fmt.Fprintf(c.out, "  [%d] %s\n", i+1, v)
	}
	fmt.Fprintln(c.out, dimStyle.Render("Enter a number or value ('cancel' to abort)"))

	for {
		input, err := c.readLine(ctx, prettyName(f.Name)+": ")
		if err != nil {
			return "", err
		}
		if input == "" {
			fmt.Fprintln(c.out, warnStyle.Render("No input provided. Please try again."))
			continue
		}

		selected, rerr := ResolveChoice(input, f.Values)
		switch {
		case rerr == nil:
			fmt.Fprintln(c.out, okStyle.Render("✓ Selected: "+selected))
			return selected, nil
		case errors.Is(rerr, ErrAmbiguous):
			fmt.Fprintln(c.out, warnStyle.Render(rerr.Error()+" — please be more specific."))
		default:
			fmt.Fprintln(c.out, warnStyle.Render(fmt.Sprintf("%q did not match any option. Please try again.", input)))
		}
	}
}

func (c *Collector) collectText(ctx context.Context, f classify.InputField) (string, error) {
	for {
		input, err := c.readLine(ctx, prettyName(f.Name)+": ")
		if err != nil {
			return "", err
		}
		if input == "" {
			fmt.Fprintln(c.out, warnStyle.Render("Empty input. Please try again."))
			continue
		}
		return input, nil
	}
}

// readLine reads one trimmed line and applies the cancel rules shared by
// every prompt. EOF counts as a cancel: the user closed the stream.
func (c *Collector) readLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrCanceled
	}
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(c.out)
		return "", ErrCanceled
	}
	// The read blocks without watching the context; a cancellation that
	// arrived mid-read must discard the line, not commit it to the field.
	if ctx.Err() != nil {
		return "", ErrCanceled
	}
	line = strings.TrimSpace(line)
	if strings.EqualFold(line, cancelWord) {
		fmt.Fprintln(c.out, warnStyle.Render("Form canceled."))
		return "", ErrCanceled
	}
	return line, nil
}

func (c *Collector) showSummary(res *Result) {
	var b strings.Builder
	b.WriteString(okStyle.Render("✓ Form completed"))
	for _, name := range res.order {
		b.WriteString(fmt.Sprintf("\n  • %s: %s", name, res.values[name]))
	}
	fmt.Fprintf(c.out, "%s\n", fieldPanelStyle.BorderForeground(lipgloss.Color("2")).Render(b.String()))
}

// ResolveChoice maps raw user input to one of the options. Resolution
// order: exact 1-based index, exact value match, then a case-insensitive
// substring match that must identify exactly one option. Zero matches
// return ErrNoMatch; several return ErrAmbiguous listing the candidates.
func ResolveChoice(input string, options []string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrNoMatch
	}

	if idx, err := strconv.Atoi(input); err == nil {
		if idx >= 1 && idx <= len(options) {
			return options[idx-1], nil
		}
		return "", fmt.Errorf("%w: number out of range 1-%d", ErrNoMatch, len(options))
	}

	for _, opt := range options {
		if input == opt {
			return opt, nil
		}
	}

	lower := strings.ToLower(input)
	var matches []string
	for _, opt := range options {
		if strings.Contains(strings.ToLower(opt), lower) {
			matches = append(matches, opt)
		}
	}
	switch len(matches) {
	case 0:
		return "", ErrNoMatch
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%w: matches %s", ErrAmbiguous, strings.Join(matches, ", "))
	}
}

// prettyName turns a field_name into a human title ("project_key" →
// "Project Key").
func prettyName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
