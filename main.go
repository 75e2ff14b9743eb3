package main

import "github.com/llehouerou/scrobblewatch/internal/cli"

func main() {
	cli.Execute()
}
