package form

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/m4xw311/agentchat/classify"
)

func TestResolveChoice(t *testing.T) {
	envs := []string{"development", "staging", "production"}

	tests := []struct {
		name    string
		input   string
		options []string
		want    string
		wantErr error
	}{
		{"numeric index", "2", envs, "staging", nil},
		{"first index", "1", envs, "development", nil},
		{"index out of range", "4", envs, "", ErrNoMatch},
		{"index zero", "0", envs, "", ErrNoMatch},
		{"exact match", "staging", envs, "staging", nil},
		{"exact match is case sensitive", "Staging", envs, "staging", nil},
		{"substring match", "prod", envs, "production", nil},
		{"case insensitive substring", "STAG", envs, "staging", nil},
		{"ambiguous substring", "t", envs, "", ErrAmbiguous},
		{"no match", "qa", envs, "", ErrNoMatch},
		{"blank input", "   ", envs, "", ErrNoMatch},
		{"exact beats substring", "dev", []string{"dev", "dev-tools"}, "dev", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveChoice(tt.input, tt.options)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveChoiceAmbiguousListsCandidates(t *testing.T) {
	_, err := ResolveChoice("t", []string{"staging", "production"})
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("err = %v, want ambiguous", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "production") || !strings.Contains(msg, "staging") {
		t.Errorf("ambiguity error should list candidates: %q", msg)
	}
}

func collect(t *testing.T, input string, fields []classify.InputField) (*Result, string, error) {
	t.Helper()
	var out bytes.Buffer
	c := NewCollector(strings.NewReader(input), &out)
	res, err := c.Collect(context.Background(), fields)
	return res, out.String(), err
}

func choiceField(name string, values ...string) classify.InputField {
	return classify.InputField{Name: name, Description: "Pick " + name, Values: values}
}

func textField(name string) classify.InputField {
	return classify.InputField{Name: name, Description: "Enter " + name}
}

func TestCollectSingleChoiceByNumber(t *testing.T) {
	fields := []classify.InputField{choiceField("environment", "development", "staging", "production")}

	res, out, err := collect(t, "1\n", fields)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := res.Get("environment"); v != "development" {
		t.Errorf("environment = %q, want development", v)
	}
	// A single field's payload collapses to the bare value.
	if p := res.Payload(); p != "development" {
		t.Errorf("Payload() = %v, want bare string", p)
	}
	if !strings.Contains(out, "[3] production") {
		t.Error("options must be listed with 1-based numbers")
	}
}

func TestCollectMultiFieldPayloadIsObject(t *testing.T) {
	fields := []classify.InputField{
		choiceField("env", "dev", "staging"),
		textField("reason"),
	}

	res, _, err := collect(t, "staging\nrollout test\n", fields)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"env": "staging", "reason": "rollout test"}
	if got := res.Payload(); !reflect.DeepEqual(got, want) {
		t.Errorf("Payload() = %v, want %v", got, want)
	}
}

func TestCollectRepromptsUntilResolvable(t *testing.T) {
	fields := []classify.InputField{choiceField("env", "staging", "production")}

	// Empty, ambiguous and unmatched answers all re-prompt.
	res, out, err := collect(t, "\nt\nqa\nprod\n", fields)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := res.Get("env"); v != "production" {
		t.Errorf("env = %q, want production", v)
	}
	if !strings.Contains(out, "did not match any option") {
		t.Error("unmatched input should warn before re-prompting")
	}
	if !strings.Contains(out, "be more specific") {
		t.Error("ambiguous input should warn before re-prompting")
	}
}

func TestCollectCancel(t *testing.T) {
	fields := []classify.InputField{
		textField("first"),
		textField("second"),
	}

	res, _, err := collect(t, "value one\ncancel\n", fields)
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
	if res != nil {
		t.Error("canceled form must not return a partial result")
	}
}

func TestCollectEOFCancels(t *testing.T) {
	fields := []classify.InputField{textField("name")}

	_, _, err := collect(t, "", fields)
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
}

func TestCollectCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	c := NewCollector(strings.NewReader("anything\n"), &out)
	_, err := c.Collect(ctx, []classify.InputField{textField("name")})
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
}

// cancelingReader cancels the context as soon as the collector starts a
// blocking read, then delivers the line anyway, modelling an interrupt that
// lands while the user is mid-keystroke.
type cancelingReader struct {
	data   io.Reader
	cancel context.CancelFunc
}

func (r *cancelingReader) Read(p []byte) (int, error) {
	r.cancel()
	return r.data.Read(p)
}

func TestCollectCancelDuringRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var out bytes.Buffer
	c := NewCollector(&cancelingReader{data: strings.NewReader("dev\n"), cancel: cancel}, &out)
	res, err := c.Collect(ctx, []classify.InputField{textField("env")})
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
	if res != nil {
		t.Error("a line typed during cancellation must not be committed")
	}
}

func TestPrettyName(t *testing.T) {
	tests := map[string]string{
		"project_key":  "Project Key",
		"env":          "Env",
		"multi-word-x": "Multi Word X",
	}
	for in, want := range tests {
		if got := prettyName(in); got != want {
			t.Errorf("prettyName(%q) = %q, want %q", in, got, want)
		}
	}
}
