package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	display_name  TEXT NOT NULL DEFAULT '',
	push_token    TEXT,
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_by  TEXT NOT NULL,
	due_date    DATETIME NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_projects_created_by ON projects(created_by);

CREATE TABLE IF NOT EXISTS project_shares (
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	email      TEXT NOT NULL,
	position   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (project_id, email)
);

CREATE INDEX IF NOT EXISTS idx_project_shares_email ON project_shares(email);

CREATE TABLE IF NOT EXISTS project_attachments (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	url        TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_project_attachments_project ON project_attachments(project_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	owner      TEXT NOT NULL,
	due_date   DATETIME,
	created_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner);

CREATE TABLE IF NOT EXISTS subtasks (
	task_id         TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	id              TEXT NOT NULL,
	position        INTEGER NOT NULL,
	name            TEXT NOT NULL,
	owner           TEXT NOT NULL,
	priority        TEXT NOT NULL DEFAULT 'Medium' CHECK(priority IN ('Low', 'Medium', 'High')),
	due_date        DATETIME,
	completed       INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	completion_date DATETIME,
	CHECK ((completed = 1) = (completion_date IS NOT NULL)),
	PRIMARY KEY (task_id, id)
);

CREATE TABLE IF NOT EXISTS task_attachments (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	subtask_id TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL,
	url        TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_task_attachments_task ON task_attachments(task_id, subtask_id);

CREATE TABLE IF NOT EXISTS task_messages (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	subtask_id TEXT NOT NULL DEFAULT '',
	text       TEXT NOT NULL,
	user_id    TEXT NOT NULL DEFAULT '',
	timestamp  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_messages_task ON task_messages(task_id, subtask_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
	{
		version: 3,
		sql: `
CREATE TABLE IF NOT EXISTS activities (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	project_id  TEXT NOT NULL,
	task_id     TEXT,
	type        TEXT NOT NULL CHECK(type IN ('message', 'image', 'document', 'file')),
	content     TEXT NOT NULL DEFAULT '',
	file_url    TEXT,
	file_name   TEXT,
	timestamp   DATETIME NOT NULL,
	user_id     TEXT NOT NULL,
	recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_activities_project ON activities(project_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_activities_task ON activities(task_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_activities_user ON activities(user_id, timestamp);

CREATE TABLE IF NOT EXISTS dead_letters (
	id           TEXT PRIMARY KEY,
	project_name TEXT NOT NULL,
	tokens       TEXT NOT NULL DEFAULT '[]',
	attempts     INTEGER NOT NULL,
	last_error   TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (3);
`,
	},
	{
		version: 4,
		sql: `
CREATE TABLE IF NOT EXISTS files (
	id           TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL,
	name         TEXT NOT NULL,
	storage_key  TEXT NOT NULL UNIQUE,
	content_type TEXT NOT NULL DEFAULT 'application/octet-stream',
	size         INTEGER NOT NULL DEFAULT 0,
	uploaded_by  TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id);

INSERT INTO schema_version (version) VALUES (4);
`,
	},
}
