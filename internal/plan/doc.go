// Package plan loads verification plans and runs them.
//
// A plan pairs a captured actual document with a benchmark and the
// matching policy to compare them under. Plans live in YAML files, one plan
// per file:
//
//	name: status_ok
//	description: "GET /status answers 200 with a JSON body"
//	actual: out/status.json
//	benchmark: bench/status.xml
//	match_all_fields: true
//	substring_match: false
//	case_sensitive: true
//	ignore:
//	  - Response.Headers
//	alternatives:
//	  Response.StatusCode: "200"
//
// or in CUE files, where any number of plans sit under a top-level "plan"
// struct keyed by name:
//
//	plan: status_ok: {
//		actual:    "out/status.json"
//		benchmark: "bench/status.xml"
//		ignore: ["Response.Headers"]
//	}
//
// Relative paths resolve against the directory of the plan file. The
// benchmark format defaults to the one implied by its extension.
//
// # Running
//
// Runner executes plans concurrently with a bounded number of workers.
// Each plan decodes its actual document into an object graph through the
// type registry and verifies it against the benchmark; one plan failing
// never stops the others.
package plan
