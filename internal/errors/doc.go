// Package errors provides structured, actionable error messages for assetkit.
//
// Every failure the asset pipeline can report carries a stable code:
//   - pattern: path pattern syntax and token resolution (E200-E219)
//   - asset: catalog consistency, conflicting or missing assets
//   - config: assetkit.json problems (E120-E139)
//   - cli: command-level failures (E140-E149)
//   - publish: object storage uploads (E150-E159)
//   - manifest: endpoint manifest I/O (E160-E179)
//
// # Usage
//
//	err := errors.New(errors.CodeUnresolvedToken).
//	    WithMeta("token", "fingerprint").
//	    WithMeta("pattern", "site#[.{fingerprint}].css").
//	    WithSuggestion("Make the group optional with '?' or provide a value")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E201: Unresolved path pattern token
//	//
//	//   token:   fingerprint
//	//   pattern: site#[.{fingerprint}].css
//	//
//	//   Hint: Make the group optional with '?' or provide a value
//	//
//	//   Learn more: https://assetkit.vango.dev/docs/errors/E201
//
// Callers branch on codes rather than messages:
//
//	if errors.HasCode(err, errors.CodeAssetConflict) { ... }
package errors
