package sqlinline

const QInsertImageAsset = `--sql 0ad56ed3-c1e8-44fa-882e-900e5a85482d
insert into image_assets (job_id, kind, file_name, file_path, created_at)
values ($1::bigint, $2::text, $3::text, $4::text, now())
returning id, created_at;
`

const QSelectImageAssetByID = `--sql 8ee7065b-aa71-4714-94ab-b6a457da66bb
select id, job_id, kind, file_name, file_path, created_at
from image_assets
where id = $1::bigint
limit 1;
`

const QListImageAssetsByJobs = `--sql e453fb10-50fa-4726-86c0-bfb91a94f91b
select id, job_id, kind, file_name, file_path, created_at
from image_assets
where job_id = any($1::bigint[])
order by job_id, id;
`

const QListImageAssets = `--sql 42df9b5d-e739-476b-a252-e58d1c423c56
select id, job_id, kind, file_name, file_path, created_at
from image_assets
where ($1::text = '' or kind = $1::text)
order by id desc
limit $2::int;
`

const QDeleteImageAsset = `--sql 1f8b5934-2a0c-40ae-a5cd-9ca31d658272
delete from image_assets
where id = $1::bigint;
`
