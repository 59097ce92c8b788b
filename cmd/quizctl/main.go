// Command quizctl manages the question bank and inspects player stats.
package main

func main() {
	Execute()
}
