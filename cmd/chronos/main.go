// Command chronos is the CLI entrypoint for the simulation core: it runs
// a named built-in scenario to completion under the runtime façade, or
// explores its POR-reduced schedule space.
//
// Grounded on akita/cmd/root.go's cobra.Command root + Execute()/os.Exit(1)
// shape.
package main

func main() {
	Execute()
}
