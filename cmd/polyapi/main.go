// Package main is the entry point for PolyAPI.
package main

func main() {
	Execute()
}
