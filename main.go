package main

import "yqpoint-system/cmd/server"

func main() {
	server.Init()
	server.Run()
}
