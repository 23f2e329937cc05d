// Package sqlinline holds the SQL executed by the service. Every query starts
// with a `--sql <uuid>` marker line; the runner logs the marker instead of the
// statement and sqllint enforces the convention.
package sqlinline

const QCreateUsageRecordsTable = `--sql 4b1f2a9e-6c03-4ce8-9b55-0d7f3aa1e2c4
create table if not exists usage_records (
  user_id    text primary key,
  doc        jsonb not null default '{}'::jsonb,
  created_at timestamptz not null default now(),
  updated_at timestamptz not null default now()
);
`

const QSelectUsageRecord = `--sql 9f4e7d21-35b8-4f6a-8e02-c1a6b59d803f
select doc from usage_records where user_id = $1;
`

const QMergeUsageRecord = `--sql d2c81b54-07a9-4e13-b6f7-5e94a2d0c718
insert into usage_records (user_id, doc)
values ($1, $2::jsonb)
on conflict (user_id) do update
set doc = usage_records.doc || excluded.doc,
    updated_at = now();
`
