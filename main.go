package main

import "github.com/frahmantamala/staff-management/cmd"

func main() {
	cmd.Execute()
}
