// Package ingest imports batches of admin-curated manual records.
//
// A batch is a list of {type, content} items, read from JSON or YAML. Items are
// validated one by one; invalid items are counted as failed and skipped while
// the rest of the batch is written in chunks, each chunk retried with
// exponential backoff.
//
// Basic usage:
//
//	batch, err := ingest.LoadBatchFile("manual.yaml")
//	if err != nil {
//	    return err
//	}
//	importer, err := ingest.NewImporter(manualRepo, ingest.WithProgress(os.Stderr, 100))
//	if err != nil {
//	    return err
//	}
//	result, err := importer.Import(ctx, batch)
//	fmt.Printf("imported %d, failed %d\n", result.Imported, result.Failed)
package ingest
