package authflow

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// flakyReader fails the first failures reads, then serves from data.
type flakyReader struct {
	failures int
	data     io.Reader
}

func (r *flakyReader) Read(p []byte) (int, error) {
	if r.failures > 0 {
		r.failures--
		return 0, errors.New("input unavailable")
	}
	return r.data.Read(p)
}

func TestManualFlowConfirms(t *testing.T) {
	var out strings.Builder
	a, _ := newTestAuthenticator(t, nil, WithInput(strings.NewReader("\n")), WithOutput(&out))

	if err := a.manualFlow(context.Background()); err != nil {
		t.Fatalf("manualFlow: %v", err)
	}
	if !strings.Contains(out.String(), "Please visit the following URL") {
		t.Errorf("authorization URL was not surfaced:\n%s", out.String())
	}
	if strings.Contains(out.String(), "redirect_uri=") {
		t.Error("manual flow embedded a redirect target in the authorization URL")
	}
}

func TestManualFlowRetriesExhausted(t *testing.T) {
	a, _ := newTestAuthenticator(t, nil, WithInput(&flakyReader{failures: manualMaxRetries, data: strings.NewReader("")}))

	err := a.manualFlowWithRetries(context.Background())
	if err == nil {
		t.Fatal("manualFlowWithRetries succeeded with no readable input")
	}
	if !strings.Contains(err.Error(), "multiple attempts") {
		t.Errorf("error %q does not mention multiple attempts", err)
	}
}

func TestManualFlowRetryThenSuccess(t *testing.T) {
	a, _ := newTestAuthenticator(t, nil, WithInput(&flakyReader{failures: 1, data: strings.NewReader("\n")}))

	if err := a.manualFlowWithRetries(context.Background()); err != nil {
		t.Fatalf("manualFlowWithRetries after one transient failure: %v", err)
	}
}
