package main

import "github.com/nguyentranbao-ct/chat-client/cmd"

func main() {
	cmd.Execute()
}
