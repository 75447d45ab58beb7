package main

import "github.com/approval-gate/approvalgate/cmd/approval-gate/cmd"

func main() {
	cmd.Execute()
}
