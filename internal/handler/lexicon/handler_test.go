package lexicon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/librenews/weblog-bridge/internal/model/lexicon"
	"github.com/librenews/weblog-bridge/internal/service/compose"
)

type staticLimits compose.Options

func (s staticLimits) Limits() compose.Options { return compose.Options(s) }

func TestListLexicons(t *testing.T) {
	opts := compose.DefaultOptions()
	opts.AutoThread = false

	r := chi.NewRouter()
	New(staticLimits(opts)).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/lexicons", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var info lexicon.Info
	if err := json.Unmarshal(resp.Body.Bytes(), &info); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if info.Default != lexicon.Default {
		t.Fatalf("unexpected default %q", info.Default)
	}
	if len(info.Supported) != len(lexicon.Names()) {
		t.Fatalf("unexpected supported list %v", info.Supported)
	}
	if info.Limits.MaxSinglePost != 280 || info.Limits.MaxRecord != 300 || info.Limits.MaxLongForm != 100000 {
		t.Fatalf("unexpected limits %+v", info.Limits)
	}
	if info.Limits.AutoThreading {
		t.Fatalf("auto threading should reflect options")
	}
}
