// Command budgetctl administers wedding budget data: imports, selection
// migration, orphan cleanup and summaries.
package main

func main() {
	Execute()
}
