package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeAltea/altea-pay/pkg/config"
	"github.com/BeAltea/altea-pay/pkg/models"
	"github.com/BeAltea/altea-pay/pkg/service"
)

const upload = `CPF/CNPJ;Cliente;Cidade;Vencido;Primeira Vencida;Dias Inad.;DT Cancelamento
018.204.624-98;Abimael Gomes De Souza;Itatiba;143,19;10/10/2023;727;
529.982.247-25;Maria Souza;Recife;abc;01/02/2025;90;
`

func newServer(t *testing.T, company models.Company) *Server {
	t.Helper()
	for _, k := range []string{"SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY", "ALTEA_STORE_URL", "ALTEA_STORE_KEY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	cfg, err := config.Build("", nil)
	require.NoError(t, err)
	logger := log.New(io.Discard)
	return New(cfg, service.NewProcessor(cfg, logger), company, logger)
}

func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, s *Server, path string, body io.Reader, contentType string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestHealth(t *testing.T) {
	s := newServer(t, models.Company{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestPreview(t *testing.T) {
	t.Run("Should return normalized entries and row errors", func(t *testing.T) {
		s := newServer(t, models.Company{})
		body, ct := multipartBody(t, "vmax.csv", upload, nil)
		rec, out := do(t, s, "/api/preview", body, ct)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "success", out["status"])
		entries := out["entries"].([]any)
		require.Len(t, entries, 1)
		debt := entries[0].(map[string]any)["debt"].(map[string]any)
		assert.Equal(t, "143.19", debt["amount"])
		assert.Equal(t, "critical", debt["classification"])

		summary := out["summary"].(map[string]any)
		assert.EqualValues(t, 1, summary["rows_skipped"])
	})

	t.Run("Should require a file", func(t *testing.T) {
		s := newServer(t, models.Company{})
		body, ct := multipartBody(t, "", "", map[string]string{"encoding": "utf-8"})
		rec, out := do(t, s, "/api/preview", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "error", out["status"])
	})

	t.Run("Should reject malformed exports", func(t *testing.T) {
		s := newServer(t, models.Company{})
		body, ct := multipartBody(t, "vmax.csv", "nothing;useful\n1;2\n", nil)
		rec, _ := do(t, s, "/api/preview", body, ct)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestImport(t *testing.T) {
	t.Run("Should run a dry import for the form company", func(t *testing.T) {
		s := newServer(t, models.Company{})
		body, ct := multipartBody(t, "vmax.csv", upload, map[string]string{
			"company_name": "VMAX",
			"company_cnpj": "07.685.452/0001-01",
			"dry_run":      "true",
		})
		rec, out := do(t, s, "/api/import", body, ct)

		require.Equal(t, http.StatusOK, rec.Code)
		summary := out["summary"].(map[string]any)
		assert.EqualValues(t, 1, summary["debts_created"])
		assert.EqualValues(t, 1, summary["rows_skipped"])
		assert.Equal(t, true, summary["dry_run"])
	})

	t.Run("Should fall back to the configured company", func(t *testing.T) {
		s := newServer(t, models.Company{Name: "VMAX", TaxID: "07.685.452/0001-01"})
		body, ct := multipartBody(t, "vmax.csv", upload, map[string]string{"dry_run": "1"})
		rec, _ := do(t, s, "/api/import", body, ct)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Should require a company", func(t *testing.T) {
		s := newServer(t, models.Company{})
		body, ct := multipartBody(t, "vmax.csv", upload, map[string]string{"dry_run": "true"})
		rec, _ := do(t, s, "/api/import", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Should refuse real imports without credentials", func(t *testing.T) {
		s := newServer(t, models.Company{Name: "VMAX", TaxID: "07.685.452/0001-01"})
		body, ct := multipartBody(t, "vmax.csv", upload, nil)
		rec, out := do(t, s, "/api/import", body, ct)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "server is not configured for imports", out["error"])
	})
}
