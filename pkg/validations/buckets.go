package validations

import "strings"

const KeyBucketNestedInUse = "errors.site_settings.s3_bucket_reused"

// BucketReuse keeps uploads and backups from sharing storage. Each value has
// the form "bucket" or "bucket/prefix". Writing either setting is rejected
// when both name the same bucket and:
//   - the prefixes are equal, or
//   - the backup prefix is empty, or
//   - the upload prefix starts with the backup prefix.
//
// The check is one sided: a backup prefix nested under the upload prefix is
// accepted.
func BucketReuse(uploadSetting, backupSetting string) Rules {
	return Rules{
		uploadSetting: func(candidate string, read Reader) error {
			return checkBuckets(uploadSetting, candidate, stringValue(read, backupSetting))
		},
		backupSetting: func(candidate string, read Reader) error {
			return checkBuckets(backupSetting, stringValue(read, uploadSetting), candidate)
		},
	}
}

func checkBuckets(setting, upload, backup string) error {
	if strings.TrimSpace(upload) == "" || strings.TrimSpace(backup) == "" {
		return nil
	}
	uploadBucket, uploadPrefix := splitBucket(upload)
	backupBucket, backupPrefix := splitBucket(backup)
	if uploadBucket != backupBucket {
		return nil
	}
	if uploadPrefix == backupPrefix || backupPrefix == "" || strings.HasPrefix(uploadPrefix, backupPrefix) {
		return reject(KeyBucketNestedInUse, map[string]any{"setting": setting},
			"%s: uploads and backups must not share bucket %q", setting, uploadBucket)
	}
	return nil
}

func splitBucket(value string) (bucket, prefix string) {
	value = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(value)), "/")
	bucket, prefix, _ = strings.Cut(value, "/")
	return bucket, prefix
}
