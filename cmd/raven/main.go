// Command raven runs operator scripts and serves worker scripts in a
// capability-restricted host.
package main

func main() {
	Execute()
}
