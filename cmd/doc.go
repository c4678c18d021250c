// Package cmd implements the linktraffic command line.
//
// Subcommands:
//   - serve runs the HTTP API until SIGINT or SIGTERM.
//   - analyze runs a batch from the command line and prints JSON, or writes
//     an .xlsx or .pdf report with --out.
//
// Configuration is read from an optional --config file, then LINKTRAFFIC_*
// environment variables. A .env file in the working directory is loaded
// first. CLOUDFLARE_API_TOKEN and CLOUDFLARE_ACCOUNT_ID are honored as-is.
package cmd
