package store

import "tender-writer/internal/domain"

// detailTables names the sub-record table of every source. Detail.Table()
// must return one of these.
var detailTables = map[domain.SourceType]string{
	domain.SourceETender:  "etender_tenders",
	domain.SourceEskom:    "eskom_tenders",
	domain.SourceTransnet: "transnet_tenders",
	domain.SourceSars:     "sars_tenders",
	domain.SourceSanral:   "sanral_tenders",
}

const noticeDDL = `
  tender_number TEXT NOT NULL DEFAULT '',
  reference TEXT NOT NULL DEFAULT '',
  audience TEXT NOT NULL DEFAULT '',
  office_location TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  province TEXT NOT NULL DEFAULT '',`

var schemaV1 = []string{`
CREATE TABLE IF NOT EXISTS tenders (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  summary TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL,
  status TEXT NOT NULL,
  published_date TEXT NOT NULL,
  closing_date TEXT NULL,
  created_at TEXT NOT NULL
);`, `
CREATE INDEX IF NOT EXISTS idx_tenders_source ON tenders(source);`, `
CREATE INDEX IF NOT EXISTS idx_tenders_closing_date ON tenders(closing_date);`, `
CREATE TABLE IF NOT EXISTS tags (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  -- domain.TagKey(name); sqlite lower() only folds ASCII
  name_key TEXT NOT NULL
);`, `
CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_name_key ON tags(name_key);`, `
CREATE TABLE IF NOT EXISTS tender_tags (
  tender_id TEXT NOT NULL REFERENCES tenders(id) ON DELETE CASCADE,
  tag_id TEXT NOT NULL REFERENCES tags(id),
  position INTEGER NOT NULL,
  PRIMARY KEY (tender_id, tag_id)
);`, `
CREATE INDEX IF NOT EXISTS idx_tender_tags_tag ON tender_tags(tag_id);`, `
CREATE TABLE IF NOT EXISTS supporting_docs (
  tender_id TEXT NOT NULL REFERENCES tenders(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  name TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (tender_id, position)
);`, `
CREATE TABLE IF NOT EXISTS etender_tenders (
  tender_id TEXT PRIMARY KEY REFERENCES tenders(id) ON DELETE CASCADE,` + noticeDDL + `
  category TEXT NOT NULL DEFAULT '',
  department TEXT NOT NULL DEFAULT '',
  tender_type TEXT NOT NULL DEFAULT '',
  contact_person TEXT NOT NULL DEFAULT '',
  telephone TEXT NOT NULL DEFAULT '',
  briefing_session BOOLEAN NOT NULL DEFAULT FALSE,
  briefing_compulsory BOOLEAN NOT NULL DEFAULT FALSE,
  briefing_venue TEXT NOT NULL DEFAULT ''
);`, `
CREATE TABLE IF NOT EXISTS eskom_tenders (
  tender_id TEXT PRIMARY KEY REFERENCES tenders(id) ON DELETE CASCADE,` + noticeDDL + `
  region TEXT NOT NULL DEFAULT '',
  division TEXT NOT NULL DEFAULT '',
  contract_type TEXT NOT NULL DEFAULT ''
);`, `
CREATE TABLE IF NOT EXISTS transnet_tenders (
  tender_id TEXT PRIMARY KEY REFERENCES tenders(id) ON DELETE CASCADE,` + noticeDDL + `
  location TEXT NOT NULL DEFAULT '',
  institution TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  contact_person TEXT NOT NULL DEFAULT '',
  tender_type TEXT NOT NULL DEFAULT ''
);`, `
CREATE TABLE IF NOT EXISTS sars_tenders (
  tender_id TEXT PRIMARY KEY REFERENCES tenders(id) ON DELETE CASCADE,` + noticeDDL + `
  briefing_session TEXT NOT NULL DEFAULT ''
);`, `
CREATE TABLE IF NOT EXISTS sanral_tenders (
  tender_id TEXT PRIMARY KEY REFERENCES tenders(id) ON DELETE CASCADE,` + noticeDDL + `
  region TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  full_notice TEXT NOT NULL DEFAULT ''
);`, `
CREATE TABLE IF NOT EXISTS queue_messages (
  id TEXT PRIMARY KEY,
  queue TEXT NOT NULL,
  body TEXT NOT NULL,
  routing_key TEXT NOT NULL DEFAULT '',
  receipt TEXT NOT NULL DEFAULT '',
  receive_count INTEGER NOT NULL DEFAULT 0,
  visible_at TEXT NOT NULL,
  enqueued_at TEXT NOT NULL
);`, `
CREATE INDEX IF NOT EXISTS idx_queue_messages_visible ON queue_messages(queue, visible_at);`,
}
