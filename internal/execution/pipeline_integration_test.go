package execution

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wizard-automation/core/internal/catalog"
	"github.com/wizard-automation/core/internal/domain"
	"github.com/wizard-automation/core/internal/structure"
)

// fixtureOnboardingPage is a single-page form served by an httptest
// server, standing in for a real wizard target so Execute's full
// replay — navigate, fill, extract — runs against a real headless
// browser instead of a live third-party site (the in-repo analogue of
// testforge's demo.playwright.dev/todomvc target).
const fixtureOnboardingPage = `<!DOCTYPE html>
<html>
<body>
  <main>
    <form id="onboarding">
      <input id="company-name" name="company_name" type="text">
    </form>
    <div id="results" style="display:none">submitted: <span id="submitted-name"></span></div>
  </main>
  <script>
    document.getElementById('company-name').addEventListener('input', function(e) {
      document.getElementById('submitted-name').textContent = e.target.value;
      document.getElementById('results').style.display = 'block';
    });
  </script>
</body>
</html>`

func integrationStructureJSON(serverURL string) string {
	return fmt.Sprintf(`{
  "wizard_id": "acme-onboarding",
  "name": "Acme Onboarding",
  "url": %q,
  "discovered_at": "2026-08-01T00:00:00Z",
  "discovery_version": "1.0.0",
  "total_pages": 1,
  "pages": [
    {
      "page_number": 1,
      "page_title": "Company details",
      "url_pattern": "/",
      "fields": [
        {
          "label": "Company name",
          "field_id": "company_name",
          "selector": "#company-name",
          "field_type": "text",
          "interaction": "fill",
          "required": true
        }
      ]
    }
  ]
}`, serverURL)
}

// TestExecute_RealBrowserHappyPath drives a real headless browser
// through Execute end to end: catalog load, schema validation, page
// navigation, field fill, and results extraction. Skips if no
// playwright browser is installed in the environment running the
// suite, since browser installation is outside this package's control.
func TestExecute_RealBrowserHappyPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, fixtureOnboardingPage)
	}))
	defer server.Close()

	root := t.TempDir()
	structDir := filepath.Join(root, "structure-schemas")
	schemaDir := filepath.Join(root, "data-schemas")
	require.NoError(t, os.MkdirAll(structDir, 0o755))
	require.NoError(t, os.MkdirAll(schemaDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(structDir, "acme-onboarding.json"), []byte(integrationStructureJSON(server.URL)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(schemaDir, "acme-onboarding-schema.json"), []byte(fixtureSchemaJSON), 0o644))

	v, err := structure.NewValidator(structure.MetaSchemaJSON)
	require.NoError(t, err)
	cat := catalog.New(root, v, nil)
	p := New(cat, testConfig(), nil, nil, nil)

	result := p.Execute(context.Background(), domain.ExecutionRequest{
		WizardID: "acme-onboarding",
		UserData: map[string]interface{}{"company_name": "Acme Corp"},
	})

	if result.Outcome == domain.OutcomeExecutionError && result.ErrorKind == string(domain.KindBrowserCrash) {
		t.Skipf("no browser engine available in this environment: %s", result.Detail)
	}

	require.Equal(t, domain.OutcomeSuccess, result.Outcome)
	require.Equal(t, 1, result.PagesCompleted)
	require.NotEmpty(t, result.ExtractedData)
	if text, _ := result.ExtractedData["results_text"].(string); text != "" {
		require.Contains(t, text, "Acme Corp")
	}
}

