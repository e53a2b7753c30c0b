// Package main provides the entry point for the ferret CLI.
//
// Ferret discovers product pages on e-commerce sites. It crawls each
// target domain with an isolated browser session and reports every
// product-detail URL it finds.
//
// Usage:
//
//	ferret crawl example.com other-shop.net
//	ferret crawl --config ferret.yaml
//
// See --help for all available options.
package main

func main() {
	Execute()
}
