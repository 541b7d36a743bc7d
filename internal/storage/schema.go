package storage

import (
	"strings"
)

// schema is shared by both dialects; %ID% is the auto-increment key type
const schema = `
CREATE TABLE IF NOT EXISTS project (
	id %ID%,
	name TEXT NOT NULL UNIQUE,
	url TEXT
);

CREATE TABLE IF NOT EXISTS developer (
	id %ID%,
	email TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS project_developer (
	project_id BIGINT NOT NULL REFERENCES project(id),
	developer_id BIGINT NOT NULL REFERENCES developer(id),
	UNIQUE (project_id, developer_id)
);

CREATE TABLE IF NOT EXISTS commit_entry (
	id %ID%,
	project_id BIGINT NOT NULL REFERENCES project(id),
	developer_id BIGINT REFERENCES developer(id),
	sha1 TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	date TIMESTAMP,
	message TEXT,
	additions INTEGER,
	deletions INTEGER,
	files_changed INTEGER,
	merged_commit TEXT,
	in_detector BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (project_id, sha1)
);

CREATE TABLE IF NOT EXISTS file_rename (
	id %ID%,
	project_id BIGINT NOT NULL REFERENCES project(id),
	commit_sha TEXT NOT NULL,
	old_file TEXT NOT NULL,
	new_file TEXT NOT NULL,
	similarity INTEGER,
	UNIQUE (project_id, commit_sha, old_file, new_file)
);

CREATE TABLE IF NOT EXISTS branch (
	id %ID%,
	project_id BIGINT NOT NULL REFERENCES project(id),
	ordinal INTEGER NOT NULL,
	fork_commit TEXT,
	merge_commit TEXT,
	is_trunk BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (project_id, ordinal)
);

CREATE TABLE IF NOT EXISTS branch_commit (
	project_id BIGINT NOT NULL REFERENCES project(id),
	branch_ordinal INTEGER NOT NULL,
	commit_sha TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	UNIQUE (project_id, commit_sha)
);

CREATE TABLE IF NOT EXISTS tag (
	project_id BIGINT NOT NULL REFERENCES project(id),
	name TEXT NOT NULL,
	commit_sha TEXT NOT NULL,
	date TIMESTAMP,
	UNIQUE (project_id, name)
);

CREATE TABLE IF NOT EXISTS smell (
	id %ID%,
	project_id BIGINT NOT NULL REFERENCES project(id),
	type TEXT NOT NULL,
	instance TEXT NOT NULL,
	file TEXT,
	UNIQUE (project_id, type, instance)
);

CREATE TABLE IF NOT EXISTS smell_event (
	project_id BIGINT NOT NULL REFERENCES project(id),
	branch_ordinal INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	smell_type TEXT NOT NULL,
	instance TEXT NOT NULL,
	category TEXT NOT NULL,
	commit_sha TEXT,
	since_ordinal INTEGER,
	until_ordinal INTEGER,
	UNIQUE (project_id, branch_ordinal, seq)
);

CREATE INDEX IF NOT EXISTS idx_smell_event_instance ON smell_event (project_id, smell_type, instance);

CREATE TABLE IF NOT EXISTS analysis_failure (
	id %ID%,
	project_id BIGINT NOT NULL,
	branch_id INTEGER NOT NULL,
	run_id TEXT,
	error_message TEXT NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	metadata TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (project_id, branch_id)
);
`

func schemaFor(idType string) []string {
	var stmts []string
	for _, s := range strings.Split(strings.ReplaceAll(schema, "%ID%", idType), ";") {
		if strings.TrimSpace(s) != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
