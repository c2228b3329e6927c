package index

import "time"

// Chunk is the unit of indexing and retrieval: a bounded span of a source
// document plus its embedding vector. Chunks are immutable once stored.
// Seq records insertion order and breaks similarity ties.
type Chunk struct {
	Seq         uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ID          string    `gorm:"type:varchar(80);uniqueIndex;not null" json:"id"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	Vector      []byte    `gorm:"type:blob;not null" json:"-"`
	Source      string    `gorm:"type:varchar(255);index" json:"source"`
	UploadTime  time.Time `json:"upload_time"`
	FileType    string    `gorm:"type:varchar(16)" json:"file_type"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	BatchID     string    `gorm:"type:varchar(36);index" json:"batch_id"`
}

func (Chunk) TableName() string { return "chunks" }

// Metadata is the caller-supplied descriptive part of a chunk. All chunks of
// one upload share Source and BatchID; Source keys bulk deletion.
type Metadata struct {
	Source      string    `json:"source"`
	UploadTime  time.Time `json:"upload_time"`
	FileType    string    `json:"file_type"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	BatchID     string    `json:"batch_id"`
}

func (c *Chunk) Metadata() Metadata {
	return Metadata{
		Source:      c.Source,
		UploadTime:  c.UploadTime,
		FileType:    c.FileType,
		ChunkIndex:  c.ChunkIndex,
		TotalChunks: c.TotalChunks,
		BatchID:     c.BatchID,
	}
}

// Result is a retrieved chunk with its similarity to the query (higher is
// closer).
type Result struct {
	Chunk      Chunk   `json:"chunk"`
	Similarity float64 `json:"similarity"`
}
