package main

import "github.com/go-recipes/recipeflow/cmd"

func main() {
	cmd.Execute()
}
