package main

import "github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/cli"

func main() {
	cli.Execute()
}
