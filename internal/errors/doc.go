// Package errors provides structured, actionable error messages for the
// vstore command line.
//
// Every error has a unique code (e.g., "E101") that maps to a short
// message, a longer explanation and a documentation URL, and may carry the
// location in the scenario file where it was found and a suggestion.
//
// # Error Categories
//
//   - config: the scenario file cannot be read or parsed
//   - scenario: the scenario parses but is not valid
//   - mutation: a scenario step failed against the store
//   - devtools: the devtools server or file watcher failed
//   - cli: command line misuse
//
// # Usage
//
//	err := errors.New("E103").
//	    WithLocation("vstore.yaml", 12, 15).
//	    WithDetail(`binding "cart" has protocol "eager"`).
//	    WithSuggestion("Use one of: immediate, synchronized, deferred")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E103: Unknown binding protocol
//	//
//	//   vstore.yaml:12:15
//	//
//	//     11 │   - name: cart
//	//   → 12 │     protocol: eager
//	//        │               ^
//	//     13 │     reads: [items]
//	//
//	//   binding "cart" has protocol "eager"
//	//
//	//   Hint: Use one of: immediate, synchronized, deferred
package errors
