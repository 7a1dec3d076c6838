package sqlinline

const QInsertJob = `--sql 5ebf0299-a47d-4893-86fd-a6d2b27646c7
insert into jobs (prompt, status, created_at, updated_at)
values ($1::text, 'processing', now(), now())
returning id, prompt, status, result_text, error_message, created_at, updated_at;
`

// Terminal transitions only apply to processing jobs; updated_at never
// moves backwards.
const QCompleteJob = `--sql 39c95628-c8ac-4eba-9ccb-a6cb8b6cc789
update jobs
set status = 'completed',
    result_text = $2::text,
    error_message = null,
    updated_at = greatest(now(), updated_at)
where id = $1::bigint
  and status = 'processing';
`

const QFailJob = `--sql 57c177a5-b944-4bf1-8db6-537ae8c00b7f
update jobs
set status = 'error',
    error_message = $2::text,
    updated_at = greatest(now(), updated_at)
where id = $1::bigint
  and status = 'processing';
`

const QFailStaleJobs = `--sql c0a2e839-f06b-4f98-bbff-c4a143da2d52
update jobs
set status = 'error',
    error_message = $2::text,
    updated_at = greatest(now(), updated_at)
where status = 'processing'
  and updated_at < $1::timestamptz
returning id;
`

const QSelectJobByID = `--sql 448b3d7e-ff50-450f-b4ad-770a44b9a7c7
select id, prompt, status, result_text, error_message, created_at, updated_at
from jobs
where id = $1::bigint
limit 1;
`

const QListJobs = `--sql 9a4da248-6537-472a-a0c5-15b49512088a
select id, prompt, status, result_text, error_message, created_at, updated_at
from jobs
order by created_at desc, id desc
limit $1::int;
`

const QDeleteJob = `--sql e509739a-1d26-4174-afb2-cb93fa30231b
delete from jobs
where id = $1::bigint;
`
