package main

import "github.com/frahmantamala/expense-workflow/cmd"

func main() {
	cmd.Execute()
}
