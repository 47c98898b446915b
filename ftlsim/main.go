// Command ftlsim runs flash translation layer experiments.
package main

import "github.com/sarchlab/ftlsim/ftlsim/cmd"

func main() {
	cmd.Execute()
}
