// Package harness runs the testable-property scenarios of the rendering
// engine as executable contract tests.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: pure_layering_merge
//	description: "Child bucket merges onto its parent (S1)"
//	documents: |
//	  ---
//	  schema: deckhand/LayeringPolicy/v1
//	  metadata: {schema: metadata/Control/v1, name: layering-policy}
//	  data: {layerOrder: [global, site]}
//	  ---
//	  schema: armada/Chart/v1
//	  metadata:
//	    schema: metadata/Document/v1
//	    name: ucp
//	    layeringDefinition: {layer: global}
//	  data: {a: 1, b: 2}
//	  ---
//	  schema: armada/Chart/v1
//	  metadata:
//	    schema: metadata/Document/v1
//	    name: ucp
//	    layeringDefinition:
//	      layer: site
//	      parentSelector: {}
//	      actions: [{method: merge, path: .}]
//	  data: {b: 3, c: 4}
//	secrets:
//	  some-reference-token: cleartext-value
//	expect:
//	  documents:
//	    - schema: armada/Chart/v1
//	      name: ucp
//	      data: {a: 1, b: 3, c: 4}
//	  errorKinds: []
//
// # Deterministic Rendering
//
// Every scenario runs with a fixed correlation ID
// (render.FixedGenerator) so repeated runs and golden-file comparisons
// are byte-stable, and with the engine's default discard logger.
//
// # Usage
//
// Load a scenario and run it:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/s1_pure_layering_merge.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
