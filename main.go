package main

import "github.com/ValentinKolb/shardkv/cmd"

func main() {
	cmd.Execute()
}
