// Inventa - cross-account AWS inventory reconciliation.
// Resolve. Correlate. Report.
package main

func main() {
	Execute()
}
