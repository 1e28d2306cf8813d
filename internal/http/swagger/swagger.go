package swagger

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apicontract "github.com/EvershineMarbles/EvershineBackend/api-contract"
)

const (
	docsURL     = "/docs"
	contractURL = "/docs/openapi.yml"

	swaggerUIVersion = "5.29.3"
)

// Register serves Swagger UI and the embedded contract it renders.
func Register(r chi.Router) {
	page := []byte(renderPage(contractURL))
	contract := apicontract.Document()

	r.Get(docsURL, serveBytes("text/html; charset=utf-8", page))
	r.Get(contractURL, serveBytes("application/yaml", contract))
}

func serveBytes(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck
		w.Write(body)
	}
}

func renderPage(contractPath string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Evershine Catalog API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@%[1]s/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@%[1]s/swagger-ui-bundle.js" crossorigin></script>
<script>
  window.onload = () => {
    window.ui = SwaggerUIBundle({
      url: '%[2]s',
      dom_id: '#swagger-ui',
      deepLinking: true,
    });
  };
</script>
</body>
</html>
`, swaggerUIVersion, contractPath)
}
