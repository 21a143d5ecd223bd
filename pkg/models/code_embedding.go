package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingDimensions is the vector width stored in the code_embeddings table.
const EmbeddingDimensions = 1536

// CodeLanguage is the source language of an embedded code chunk.
type CodeLanguage string

const (
	LanguageTypeScript CodeLanguage = "typescript"
	LanguageJavaScript CodeLanguage = "javascript"
	LanguagePython     CodeLanguage = "python"
	LanguageJava       CodeLanguage = "java"
	LanguageGo         CodeLanguage = "go"
	LanguageRust       CodeLanguage = "rust"
	LanguageCPP        CodeLanguage = "cpp"
	LanguageCSharp     CodeLanguage = "csharp"
	LanguageOther      CodeLanguage = "other"
)

// Valid reports whether l is a known language.
func (l CodeLanguage) Valid() bool {
	switch l {
	case LanguageTypeScript, LanguageJavaScript, LanguagePython, LanguageJava,
		LanguageGo, LanguageRust, LanguageCPP, LanguageCSharp, LanguageOther:
		return true
	default:
		return false
	}
}

func (l *CodeLanguage) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, l, "language")
}

// ChunkType is the syntactic unit a code chunk was cut along.
type ChunkType string

const (
	ChunkFunction  ChunkType = "function"
	ChunkClass     ChunkType = "class"
	ChunkInterface ChunkType = "interface"
	ChunkModule    ChunkType = "module"
	ChunkBlock     ChunkType = "block"
)

// Valid reports whether c is a known chunk type.
func (c ChunkType) Valid() bool {
	switch c {
	case ChunkFunction, ChunkClass, ChunkInterface, ChunkModule, ChunkBlock:
		return true
	default:
		return false
	}
}

func (c *ChunkType) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, c, "chunk type")
}

// CodeMetadata describes where a chunk came from.
type CodeMetadata struct {
	Language  CodeLanguage `json:"language"`
	ChunkType ChunkType    `json:"chunk_type"`
	StartLine int          `json:"start_line"`
	EndLine   int          `json:"end_line"`
	Symbols   []string     `json:"symbols,omitempty"`
	Imports   []string     `json:"imports,omitempty"`
	Exports   []string     `json:"exports,omitempty"`
}

// CodeEmbedding is a vectorised code chunk used for semantic search.
type CodeEmbedding struct {
	ID        int64           `json:"id"`
	FilePath  string          `json:"file_path"`
	CodeChunk string          `json:"code_chunk"`
	Embedding pgvector.Vector `json:"-"`
	Metadata  CodeMetadata    `json:"metadata"`
	ProjectID *int64          `json:"project_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CodeMatch is a search hit with its cosine distance to the query.
type CodeMatch struct {
	CodeEmbedding
	Distance float64 `json:"distance"`
}

// Validate checks the fields of an embedding before it is stored.
func (c *CodeEmbedding) Validate() error {
	switch {
	case c.FilePath == "":
		return fieldErr("file_path", "must not be empty")
	case c.CodeChunk == "":
		return fieldErr("code_chunk", "must not be empty")
	case len(c.Embedding.Slice()) != EmbeddingDimensions:
		return fieldErr("embedding", "must have 1536 dimensions")
	case !c.Metadata.Language.Valid():
		return fieldErr("metadata.language", "unknown language "+string(c.Metadata.Language))
	case !c.Metadata.ChunkType.Valid():
		return fieldErr("metadata.chunk_type", "unknown chunk type "+string(c.Metadata.ChunkType))
	case c.Metadata.EndLine < c.Metadata.StartLine:
		return fieldErr("metadata.end_line", "must not precede start_line")
	}
	return nil
}
