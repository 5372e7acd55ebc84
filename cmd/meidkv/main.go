// Command meidkv is the server and client CLI entrypoint.
package main

import "github.com/finnegan-hale/meidkv/cmd"

func main() {
	cmd.Execute()
}
