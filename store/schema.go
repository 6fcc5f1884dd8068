package store

// Ingest pipeline ids
const (
	DocumentPipeline = "pii-detection-pipeline"
	PolicyPipeline   = "policy-processing-pipeline"
)

type mapping = map[string]any

func keyword() mapping { return mapping{"type": "keyword"} }

func embedding() mapping {
	return mapping{"type": "dense_vector", "dims": 384, "index": true, "similarity": "cosine"}
}

// indexMappings are the index definitions created by Setup
var indexMappings = map[string]mapping{
	PoliciesIndex: {
		"mappings": mapping{
			"properties": mapping{
				"title": mapping{"type": "text", "analyzer": "standard"},
				"content": mapping{
					"type":     "text",
					"analyzer": "standard",
					"fields": mapping{
						"keyword": mapping{"type": "keyword", "ignore_above": 256},
					},
				},
				"content_embedding": embedding(),
				"framework":         keyword(),
				"section":           keyword(),
				"article":           keyword(),
				"keywords":          keyword(),
				"category":          keyword(),
				"effective_date":    mapping{"type": "date"},
				"last_updated":      mapping{"type": "date"},
				"version":           keyword(),
			},
		},
	},
	DocumentsIndex: {
		"mappings": mapping{
			"properties": mapping{
				"content":           mapping{"type": "text", "analyzer": "standard"},
				"content_embedding": embedding(),
				"source":            keyword(),
				"channel":           keyword(),
				"author":            keyword(),
				"author_email":      keyword(),
				"timestamp":         mapping{"type": "date"},
				"ingested_at":       mapping{"type": "date"},
				"pii_detected": mapping{
					"type": "nested",
					"properties": mapping{
						"type":       keyword(),
						"value":      keyword(),
						"redacted":   keyword(),
						"start_pos":  mapping{"type": "integer"},
						"end_pos":    mapping{"type": "integer"},
						"confidence": mapping{"type": "float"},
					},
				},
				"pii_types":  keyword(),
				"pii_count":  mapping{"type": "integer"},
				"risk_score": mapping{"type": "float"},
				"flagged":    mapping{"type": "boolean"},
				"reviewed":   mapping{"type": "boolean"},
				"metadata":   mapping{"type": "object", "enabled": false},
			},
		},
	},
	ViolationsIndex: {
		"mappings": mapping{
			"properties": mapping{
				"document_id":        keyword(),
				"document_source":    keyword(),
				"document_author":    keyword(),
				"document_snippet":   mapping{"type": "text"},
				"violation_type":     keyword(),
				"policy_framework":   keyword(),
				"policy_reference":   keyword(),
				"severity":           keyword(),
				"pii_involved":       keyword(),
				"pii_count":          mapping{"type": "integer"},
				"remediation_advice": mapping{"type": "text"},
				"status":             keyword(),
				"flagged_at":         mapping{"type": "date"},
				"flagged_by":         keyword(),
				"reviewed_by":        keyword(),
				"reviewed_at":        mapping{"type": "date"},
				"resolution_notes":   mapping{"type": "text"},
			},
		},
	},
}

// ingestPipelines only stamp timestamps and defaults; detection runs in the
// application before documents are indexed
var ingestPipelines = map[string]mapping{
	DocumentPipeline: {
		"description": "Pre-processing pipeline for monitored documents",
		"processors": []mapping{
			{"set": mapping{"field": "ingested_at", "value": "{{_ingest.timestamp}}"}},
			{"set": mapping{"field": "flagged", "value": false, "override": false}},
			{"set": mapping{"field": "reviewed", "value": false, "override": false}},
		},
	},
	PolicyPipeline: {
		"description": "Stamp policy documents on ingest",
		"processors": []mapping{
			{"set": mapping{"field": "last_updated", "value": "{{_ingest.timestamp}}"}},
		},
	},
}

// indexOrder fixes the creation order of indices
var indexOrder = []string{PoliciesIndex, DocumentsIndex, ViolationsIndex}
