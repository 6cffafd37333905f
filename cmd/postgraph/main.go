// Command postgraph drafts social media posts with an LLM, pausing for
// human review before publishing.
package main

func main() {
	Execute()
}
