package domain

type Upload struct {
	Name string
	Data []byte
}

type Document struct {
	Name  string
	Text  string
	Pages int
}

type Summary struct {
	Text        string
	Instruction string
	Model       string
	Disclaimer  string
	Pages       int
}
