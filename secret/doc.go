// Package secret resolves references in source configuration so that
// credentials and sensitive request headers never have to be written into a
// config file verbatim.
//
// Two forms are understood, and may be combined in one value:
//   - Environment expansion: ${NAME} must be set, $$ is a literal dollar.
//   - Provider references: secretref:<provider>:<ref>, either as the whole
//     value or inline ("Bearer secretref:file:/run/secrets/token").
//
// Built-in providers are "env" (reads a variable) and "file" (reads a file
// and trims the trailing newline, the layout used by mounted secrets).
package secret
