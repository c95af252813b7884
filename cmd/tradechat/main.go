package main

import "tradechat/cmd"

func main() {
	cmd.Execute()
}
