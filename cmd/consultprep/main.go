// Command consultprep runs mock consulting case interviews.
package main

import "github.com/consultprep-dev/consultprep/internal/cli"

func main() {
	cli.Execute()
}
