// Command berth renders deployment values from service declarations.
package main

import "github.com/cameronsjo/berth/internal/cmd"

func main() {
	cmd.Execute()
}
