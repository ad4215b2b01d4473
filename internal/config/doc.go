// Package config resolves orlint configuration. Files named orlint.toml,
// orlint.yaml or orlint.yml are searched from a file's directory upward;
// Merge folds them over the built-in defaults, outermost first, with caller
// overrides last. Merge is pure, so Resolver can cache its results by the
// digest of everything that went in.
package config
