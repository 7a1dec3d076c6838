package sqlinline

// QEnsureSchema creates the tables used by the service. It is safe to run on
// every start-up.
const QEnsureSchema = `--sql 8ef76260-2c0f-438a-8c29-7e803e929076
create table if not exists jobs (
    id            bigserial primary key,
    prompt        text not null check (prompt <> ''),
    status        varchar(32) not null default 'pending'
                  check (status in ('pending', 'processing', 'completed', 'error')),
    result_text   text,
    error_message text,
    created_at    timestamptz not null default now(),
    updated_at    timestamptz not null default now()
);

create index if not exists jobs_created_at_idx on jobs (created_at desc, id desc);
create index if not exists jobs_status_updated_idx on jobs (status, updated_at);

create table if not exists image_assets (
    id         bigserial primary key,
    job_id     bigint not null references jobs(id) on delete cascade,
    kind       varchar(16) not null check (kind in ('input', 'output')),
    file_name  varchar(255) not null,
    file_path  varchar(512) not null,
    created_at timestamptz not null default now()
);

create index if not exists image_assets_job_idx on image_assets (job_id, id);
create index if not exists image_assets_kind_idx on image_assets (kind, id desc);

create table if not exists integration_tokens (
    provider   text primary key,
    token      text not null,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`
