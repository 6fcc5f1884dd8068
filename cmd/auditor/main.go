// Command auditor scans documents for PII, scores their compliance risk and
// serves the results over HTTP and MCP.
package main

func main() {
	Execute()
}
