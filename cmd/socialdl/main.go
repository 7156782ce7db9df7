package main

import "github.com/guiyumin/socialdl/internal/cli"

func main() {
	cli.Execute()
}
