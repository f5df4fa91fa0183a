package chunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	return NewParserWithRegistry(DefaultRegistry())
}

func TestParser_ParseGoFile_ReturnsAST(t *testing.T) {
	source := []byte(`package main

func hello() {
	fmt.Println("Hello")
}

func goodbye() {
	fmt.Println("Bye")
}
`)

	parser := newTestParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "go")
	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.Equal(t, "go", tree.Language)

	funcNodes := findNodes(tree.Root, "function_declaration")
	assert.Len(t, funcNodes, 2, "should find 2 function declarations")
}

func TestParser_ParseTypeScript_ReturnsAST(t *testing.T) {
	source := []byte(`interface User {
	name: string;
}

function greet(user: User): string {
	return "Hello, " + user.name;
}

const add = (a: number, b: number): number => a + b;
`)

	parser := newTestParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "typescript")
	require.NoError(t, err)
	assert.Equal(t, "typescript", tree.Language)

	assert.Len(t, findNodes(tree.Root, "interface_declaration"), 1)
	assert.Len(t, findNodes(tree.Root, "function_declaration"), 1)
	assert.Len(t, findNodes(tree.Root, "arrow_function"), 1)
}

func TestParser_ParsePython_ReturnsAST(t *testing.T) {
	source := []byte("def greet(name):\n    return 'hi ' + name\n\n\nclass Greeter:\n    pass\n")

	parser := newTestParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "python")
	require.NoError(t, err)
	assert.Len(t, findNodes(tree.Root, "function_definition"), 1)
	assert.Len(t, findNodes(tree.Root, "class_definition"), 1)
}

func TestParser_UnsupportedLanguage_ReturnsError(t *testing.T) {
	parser := newTestParser()
	defer parser.Close()

	_, err := parser.Parse(context.Background(), []byte("fn main() {}"), "rust")
	require.Error(t, err)
}

func TestNode_GetContent(t *testing.T) {
	source := []byte("package main\n")
	node := &Node{StartByte: 0, EndByte: 7}
	assert.Equal(t, "package", node.GetContent(source))

	oob := &Node{StartByte: 0, EndByte: uint32(len(source) + 10)}
	assert.Equal(t, "", oob.GetContent(source))

	inverted := &Node{StartByte: 5, EndByte: 2}
	assert.Equal(t, "", inverted.GetContent(source))
}

func TestNode_Walk_VisitsEveryDescendant(t *testing.T) {
	root := &Node{
		Type: "root",
		Children: []*Node{
			{Type: "a", Children: []*Node{{Type: "a1"}}},
			{Type: "b"},
		},
	}

	var visited []string
	root.Walk(func(n *Node) bool {
		visited = append(visited, n.Type)
		return true
	})
	assert.Equal(t, []string{"root", "a", "a1", "b"}, visited)
}

func TestNode_Walk_StopsDescentWhenFnReturnsFalse(t *testing.T) {
	root := &Node{
		Type: "root",
		Children: []*Node{
			{Type: "skip", Children: []*Node{{Type: "hidden"}}},
		},
	}

	var visited []string
	root.Walk(func(n *Node) bool {
		visited = append(visited, n.Type)
		return n.Type != "skip"
	})
	assert.Equal(t, []string{"root", "skip"}, visited)
}

func findNodes(node *Node, nodeType string) []*Node {
	var result []*Node
	node.Walk(func(n *Node) bool {
		if n.Type == nodeType {
			result = append(result, n)
		}
		return true
	})
	return result
}
