package main

import "DocQA/client/rag-chat/cmd"

func main() {
	cmd.Execute()
}
