package catalog

var schema = []string{
	`CREATE TABLE IF NOT EXISTS topics (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		concepts_json TEXT NOT NULL DEFAULT '[]',
		curriculum TEXT NOT NULL DEFAULT '',
		grade INTEGER NOT NULL DEFAULT 0,
		subject TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		topic_id TEXT NOT NULL,
		text TEXT NOT NULL,
		type TEXT NOT NULL,
		options_json TEXT NOT NULL DEFAULT '[]',
		answers_json TEXT NOT NULL,
		syllabus_ref TEXT NOT NULL DEFAULT '',
		difficulty_tier INTEGER NOT NULL DEFAULT 0,
		created_at_ms BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_topic ON questions(topic_id)`,
}
