// Package secret provides strict environment expansion for credential values.
//
// Configuration values may reference environment variables as `${VAR}`;
// ExpandEnvStrict expands them and fails when a referenced variable is
// missing, so a typo surfaces at construction instead of producing an empty
// credential at call time. `$$` emits a literal `$`.
package secret
