// Package api hosts the HTTP server, middleware, and handlers. Routes:
//   - GET /healthz and /readyz for probes; readyz reports whether exact
//     traffic data is available.
//   - GET /metrics for Prometheus scraping.
//   - POST /analyze to analyze a batch of URLs.
//   - POST /export/excel and /export/pdf to render results as attachments.
//   - GET /screenshot/{id} to proxy a scan's screenshot.
package api
