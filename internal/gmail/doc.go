// Package gmail downloads Gmail messages selected by label and exports them
// as JSON.
//
// The package offers:
//   - A thin client over the Gmail Users service (labels, paged message
//     listing, full message fetch) that records an OpenTelemetry span and
//     metric per API call
//   - Label resolution by name, from a labels.csv file or interactive input
//   - Conversion of a fetched message into an EmailRecord, using the
//     mimepart package for the plain-text body and attachment names
//   - A Downloader that ties these together in "bundle" mode (flattened
//     records in a timestamped file) or "raw" mode (full API messages in
//     emails.json)
//
// Example usage:
//
//	httpClient, err := google.NewHTTPClient(ctx, google.DefaultConfig(), auth, logger)
//	if err != nil {
//	    return err
//	}
//	client, err := gmail.NewClient(ctx, httpClient)
//	if err != nil {
//	    return err
//	}
//
//	d := gmail.NewDownloader(client, gmail.DefaultDownloaderConfig(), os.Stdin, os.Stdout, logger, metrics)
//	result, err := d.Run(ctx)
package gmail
